package dispatch

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/streadway/amqp"

	"github.com/xtding233/wish-backend/internal/gacha"
)

func TestRender(t *testing.T) {
	cases := []struct {
		name   string
		action gacha.Action
		want   []string
	}{
		{"default give", gacha.NewAction("minecraft:diamond", 3, 3, nil), []string{"minecraft:give steve minecraft:diamond 3"}},
		{"sanitized", gacha.NewAction("dia mond;rm", 1, 1, nil), []string{"minecraft:give steve diamondrm 1"}},
		{"empty name", gacha.NewAction("§§", 1, 1, nil), []string{"minecraft:give steve unknown_reward 1"}},
		{"templates", gacha.NewAction("vip", 2, 2, []string{
			"/lp user {player} parent add vip",
			"eco give %player% {amount}",
			"  ",
			"say $player got {item}",
		}), []string{
			"lp user steve parent add vip",
			"eco give steve 2",
			"say steve got vip",
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Render("steve", c.action); !reflect.DeepEqual(got, c.want) {
				t.Fatalf("got %q want %q", got, c.want)
			}
		})
	}
}

func TestRenderPlayerCannotInject(t *testing.T) {
	give := gacha.NewAction("minecraft:diamond", 1, 1, nil)
	tmpl := gacha.NewAction("vip", 1, 1, []string{"lp user {player} parent add vip", "say %player% $player"})

	if got, want := Render("bob @a\nop mallory", give), []string{"minecraft:give bobaopmallory minecraft:diamond 1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("give = %q want %q", got, want)
	}
	want := []string{"lp user bobaopmallory parent add vip", "say bobaopmallory bobaopmallory"}
	if got := Render("bob @a\nop mallory", tmpl); !reflect.DeepEqual(got, want) {
		t.Fatalf("templates = %q want %q", got, want)
	}
	if got := Render(" \n;", give); got != nil {
		t.Fatalf("empty player rendered %q", got)
	}
}

type sinkRec struct {
	cmds []string
	fail string
}

func (s *sinkRec) Execute(_ context.Context, c string) error {
	s.cmds = append(s.cmds, c)
	if c == s.fail {
		return errors.New("boom")
	}
	return nil
}

func TestCommandDispatcher(t *testing.T) {
	sink := &sinkRec{fail: "b"}
	d := NewCommandDispatcher(sink, nil)
	err := d.Apply(context.Background(), "alex", gacha.NewAction("x", 1, 1, []string{"a", "b", "c"}))
	if err == nil {
		t.Fatal("expected sink error to surface")
	}
	if !reflect.DeepEqual(sink.cmds, []string{"a", "b", "c"}) {
		t.Fatalf("a failing command must not stop the rest: %v", sink.cmds)
	}
}

func TestMultiAndRecorder(t *testing.T) {
	r1, r2 := &Recorder{}, &Recorder{}
	failing := Func(func(context.Context, string, gacha.Action) error { return errors.New("down") })
	m := Multi{r1, failing, r2}
	if err := m.Apply(context.Background(), "alex", gacha.NewAction("gem", 1, 1, nil)); err == nil {
		t.Fatal("expected joined error")
	}
	if len(r1.Applied()) != 1 || len(r2.Applied()) != 1 || r2.Applied()[0].Action.Name != "gem" {
		t.Fatal("every dispatcher should see the action")
	}
	r1.Reset()
	if len(r1.Applied()) != 0 {
		t.Fatal("reset")
	}
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func TestAMQPDispatcherPublishes(t *testing.T) {
	ch := &fakeChannel{}
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	d := &AMQPDispatcher{ch: ch, exchange: "wish", routingKey: "reward", now: func() time.Time { return at }}

	if err := d.Apply(context.Background(), "alex", gacha.NewAction("minecraft:emerald", 4, 4, nil)); err != nil {
		t.Fatal(err)
	}
	if ch.exchange != "wish" || ch.key != "reward" || ch.msg.ContentType != "application/json" {
		t.Fatalf("published to %s/%s as %s", ch.exchange, ch.key, ch.msg.ContentType)
	}
	var ev RewardEvent
	if err := jsoniter.Unmarshal(ch.msg.Body, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Account != "alex" || ev.Reward != "minecraft:emerald" || ev.Amount != 4 || !ev.At.Equal(at) {
		t.Fatalf("event = %+v", ev)
	}
	if len(ev.Commands) != 1 || ev.Commands[0] != "minecraft:give alex minecraft:emerald 4" {
		t.Fatalf("commands = %v", ev.Commands)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}
