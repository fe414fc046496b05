package server

import "github.com/xtding233/wish-backend/internal/gacha"

func items(wl *gacha.WeightedList) []itemView {
	if wl == nil {
		return nil
	}
	out := make([]itemView, 0, wl.Len())
	for i, e := range wl.Entries() {
		out = append(out, itemView{
			Key:    e.Key,
			Weight: e.Weight,
			Chance: wl.Chance(i),
			Nested: e.Kind() == gacha.EntryNested,
		})
	}
	return out
}
