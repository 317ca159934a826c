package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/telegram/commands"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidRegistration rejects empty names, keys and handlers.
	ErrInvalidRegistration = errors.New("telegram: invalid registration")
	// ErrDuplicateRegistration rejects a name, alias or key already taken.
	ErrDuplicateRegistration = errors.New("telegram: duplicate registration")
)

// Registry maps command names, their aliases and callback keys to handlers.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	aliases          map[string]string
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return tghelpers.Answer(c, "Unsupported action")
		},
	}
}

// commandKey lower-cases name and adds the leading slash when missing.
func commandKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" && !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}

func skip(event, name, reason string) {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, event,
		slog.String("name", name),
		slog.String("reason", reason),
	)
}

// RegisterCommand adds a command under name, which must start with "/".
// Aliases may be given with or without the slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if name == "" || cmd.Handler == nil || cmd.Description == "" {
		skip("register.command.skip", name, "invalid")
		return fmt.Errorf("%w: command %q", ErrInvalidRegistration, name)
	}
	if !strings.HasPrefix(name, "/") {
		skip("register.command.skip", name, "no_slash_prefix")
		return fmt.Errorf("%w: command %q has no slash prefix", ErrInvalidRegistration, name)
	}
	key := commandKey(name)
	aliases := make([]string, 0, len(cmd.Aliases))
	for _, a := range cmd.Aliases {
		if a = commandKey(a); a != "" && a != key {
			aliases = append(aliases, a)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range append([]string{key}, aliases...) {
		if r.taken(k) {
			skip("register.command.duplicate", k, "taken")
			return fmt.Errorf("%w: command %s", ErrDuplicateRegistration, k)
		}
	}
	cmd.Aliases = aliases
	r.commands[key] = cmd
	for _, a := range aliases {
		r.aliases[a] = key
	}
	return nil
}

func (r *Registry) taken(key string) bool {
	_, cmd := r.commands[key]
	_, alias := r.aliases[key]
	return cmd || alias
}

// ListCommands returns the command menu sorted by name. With visibleOnly,
// hidden and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		meta := r.commands[name]
		if visibleOnly && !meta.Listed() {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	return list
}

// LookupCommand resolves a command name or alias, in any case and with or
// without the slash, to its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	key := commandKey(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	cmd, ok := r.commands[key]
	if !ok {
		return "", commands.Command{}, false
	}
	return key, cmd, true
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// RegisterCallback adds a callback handler mapped to its key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return fmt.Errorf("%w: callback %q", ErrInvalidRegistration, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("%w: callback %s", ErrDuplicateRegistration, key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered keys sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbackNotFound = h
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text no route claimed.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// InitBotCommands publishes the visible commands as the Telegram command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
