// types.go
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Raw config loaded from YAML; mirrors the wish.yaml schema.
type RawConfig struct {
	Version  string         `yaml:"version"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Server   ServerConfig   `yaml:"server"`
	History  *HistoryConfig `yaml:"history,omitempty"`
	// MaxPerWish caps the count of one request; pools may override it.
	MaxPerWish int            `yaml:"max_per_wish,omitempty"`
	Tickets    []TicketConfig `yaml:"tickets,omitempty"`
	Pools      PoolList       `yaml:"pools"`
	Notes      string         `yaml:"notes,omitempty"`
}

type StorageConfig struct {
	Type      string `yaml:"type"` // "memory" | "yaml" | "redis"
	DataDir   string `yaml:"data_dir"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type LedgerConfig struct {
	Type           string `yaml:"type"` // "memory" | "postgres" | "none"
	DSN            string `yaml:"dsn"`
	InitialBalance string `yaml:"initial_balance"` // memory only, decimal string
}

type DispatchConfig struct {
	Type       string `yaml:"type"` // "log" | "amqp"
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

type HistoryConfig struct {
	MaxSize int `yaml:"max_size"`
}

type TicketConfig struct {
	ID              string   `yaml:"id"`
	ApplicablePools []string `yaml:"applicable_pools"`
	DeductCount     *int     `yaml:"deduct_count,omitempty"`
}

type PoolConfig struct {
	ID             string         `yaml:"-"`
	CountsName     string         `yaml:"counts_name,omitempty"`
	MaxCount       int            `yaml:"max_count"`
	MaxPerWish     int            `yaml:"max_per_wish,omitempty"`
	Cost           map[string]int `yaml:"cost,omitempty"`
	AutoCost       *bool          `yaml:"auto_cost,omitempty"`
	Items          ItemList       `yaml:"items"`
	GuaranteeItems ItemList       `yaml:"guarantee_items,omitempty"`
	Duration       *DurationCfg   `yaml:"duration,omitempty"`
	LimitModes     *LimitCfg      `yaml:"limit_modes,omitempty"`
	Display        *DisplayCfg    `yaml:"display,omitempty"`
}

type DurationCfg struct {
	StartDate string `yaml:"startDate"`
	EndDate   string `yaml:"endDate"`
}

type LimitCfg struct {
	Count int    `yaml:"count"`
	Time  string `yaml:"time"`
}

type DisplayCfg struct {
	Material        string   `yaml:"material"`
	CustomModelData int      `yaml:"custom_model_data"`
	Name            string   `yaml:"name"`
	Description     []string `yaml:"description"`
}

// PoolList keeps pools in declaration order.
type PoolList []PoolConfig

func (pl *PoolList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: pools must be a mapping", value.Line)
	}
	out := make(PoolList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var pc PoolConfig
		if err := value.Content[i+1].Decode(&pc); err != nil {
			return fmt.Errorf("pool %q: %w", value.Content[i].Value, err)
		}
		pc.ID = value.Content[i].Value
		out = append(out, pc)
	}
	*pl = out
	return nil
}

// ItemSpec is one reward entry. In YAML it is either a bare weight
// ("diamond: 5") or a mapping with probability/amount/commands/subList.
type ItemSpec struct {
	Key             string
	Probability     float64
	Name            string
	Amount          AmountRange
	Commands        StringList
	Items           []ActionSpec
	SubList         ItemList
	DisplayModel    int
	DisplayMaterial string
	Enchanted       bool
}

type itemBody struct {
	Probability     float64      `yaml:"probability"`
	Name            string       `yaml:"name"`
	Amount          AmountRange  `yaml:"amount"`
	Command         string       `yaml:"command"`
	Commands        StringList   `yaml:"commands"`
	Items           []ActionSpec `yaml:"items"`
	SubList         ItemList     `yaml:"subList"`
	DisplayModel    int          `yaml:"display_model"`
	DisplayMaterial string       `yaml:"display_material"`
	Enchanted       bool         `yaml:"enchanted"`
}

// ActionSpec is one element of an entry's "items" list.
type ActionSpec struct {
	Name     string      `yaml:"name"`
	Amount   AmountRange `yaml:"amount"`
	Command  string      `yaml:"command"`
	Commands StringList  `yaml:"commands"`
}

// AllCommands merges "commands" with the single "command" form.
func (a ActionSpec) AllCommands() []string {
	return mergeCommands(a.Commands, a.Command)
}

func mergeCommands(list StringList, single string) []string {
	if len(list) > 0 {
		return list
	}
	if s := strings.TrimSpace(single); s != "" {
		return []string{single}
	}
	return nil
}

// ItemList keeps entries in declaration order, which fixes the fallback.
type ItemList []ItemSpec

func (il *ItemList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: item list must be a mapping", value.Line)
	}
	out := make(ItemList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, node := value.Content[i].Value, value.Content[i+1]
		switch node.Kind {
		case yaml.ScalarNode:
			w, err := strconv.ParseFloat(strings.TrimSpace(node.Value), 64)
			if err != nil {
				// non-numeric scalars are ignored, not fatal
				continue
			}
			out = append(out, ItemSpec{Key: key, Probability: w})
		case yaml.MappingNode:
			var b itemBody
			if err := node.Decode(&b); err != nil {
				return fmt.Errorf("item %q: %w", key, err)
			}
			out = append(out, ItemSpec{
				Key:             key,
				Probability:     b.Probability,
				Name:            b.Name,
				Amount:          b.Amount,
				Commands:        mergeCommands(b.Commands, b.Command),
				Items:           b.Items,
				SubList:         b.SubList,
				DisplayModel:    b.DisplayModel,
				DisplayMaterial: b.DisplayMaterial,
				Enchanted:       b.Enchanted,
			})
		default:
			return fmt.Errorf("line %d: invalid item config format for %q", node.Line, key)
		}
	}
	*il = out
	return nil
}

// AmountRange accepts 3 or "2-5". Zero values mean 1.
type AmountRange struct {
	Min int
	Max int
}

func (a *AmountRange) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a number or \"min-max\"", value.Line)
	}
	raw := strings.TrimSpace(value.Value)
	if lo, hi, ok := strings.Cut(raw, "-"); ok && lo != "" {
		minV, err1 := strconv.Atoi(strings.TrimSpace(lo))
		maxV, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 == nil && err2 == nil {
			a.Min, a.Max = minV, maxV
		}
		return nil
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		a.Min, a.Max = n, n
	}
	return nil
}

// StringList accepts a single string or a list of strings.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if v := strings.TrimSpace(value.Value); v != "" {
			*s = StringList{v}
		}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: expected string or list", value.Line)
}
