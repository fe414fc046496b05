package dispatch

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xtding233/wish-backend/internal/gacha"
)

const unknownReward = "unknown_reward"

var (
	unsafeItemChars   = regexp.MustCompile(`[^A-Za-z0-9:_.-]`)
	unsafePlayerChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// SanitizeItem strips characters that could break out of a give command.
func SanitizeItem(raw string) string {
	cleaned := unsafeItemChars.ReplaceAllString(raw, "")
	if cleaned == "" {
		return unknownReward
	}
	return cleaned
}

// SanitizePlayer keeps only characters valid in a player name, so a name
// can never add arguments, selectors or lines to a command.
func SanitizePlayer(raw string) string {
	return unsafePlayerChars.ReplaceAllString(raw, "")
}

// Render expands an action into host commands. Templates may use {player},
// %player%, $player, {amount} and {item}; a leading "/" is dropped. An
// action without commands becomes a plain give. Nothing is rendered for a
// player name with no valid characters.
func Render(account string, action gacha.Action) []string {
	account = SanitizePlayer(account)
	if account == "" {
		return nil
	}
	item := SanitizeItem(action.Name)
	amount := strconv.Itoa(action.Amount())
	if len(action.Commands) == 0 {
		return []string{"minecraft:give " + account + " " + item + " " + amount}
	}
	r := strings.NewReplacer(
		"{player}", account,
		"%player%", account,
		"$player", account,
		"{amount}", amount,
		"{item}", item,
	)
	out := make([]string, 0, len(action.Commands))
	for _, c := range action.Commands {
		if strings.TrimSpace(c) == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(r.Replace(c), "/"))
	}
	return out
}

// CommandSink runs one console command on the host.
type CommandSink interface {
	Execute(ctx context.Context, command string) error
}

// LogSink only logs commands. It is the default when no host is attached.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Execute(_ context.Context, command string) error {
	if s.Log != nil {
		s.Log.Info("dispatch command", zap.String("command", command))
	}
	return nil
}

// CommandDispatcher renders actions and hands each command to Sink.
type CommandDispatcher struct {
	Sink CommandSink
	Log  *zap.Logger
}

func NewCommandDispatcher(sink CommandSink, log *zap.Logger) *CommandDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandDispatcher{Sink: sink, Log: log}
}

func (d *CommandDispatcher) Apply(ctx context.Context, account string, action gacha.Action) error {
	var errs []error
	for _, c := range Render(account, action) {
		if err := d.Sink.Execute(ctx, c); err != nil {
			d.Log.Warn("command failed", zap.String("account", account), zap.String("command", c), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
