package bot

import (
	"context"
	"strings"

	"github.com/m3rciful/achibot/core/metrics"
	tg "github.com/m3rciful/achibot/core/telegram"
	"github.com/m3rciful/achibot/core/telegram/callbacks"
	"github.com/m3rciful/achibot/core/telegram/commands"
	tghelpers "github.com/m3rciful/achibot/core/telegram/helpers"
	"github.com/m3rciful/achibot/core/telegram/keyboard"
	"github.com/m3rciful/achibot/core/telegram/router"
	"github.com/m3rciful/achibot/core/telegram/state"
	"github.com/m3rciful/achibot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// Bot binds a Service to telebot handlers.
type Bot struct {
	svc     *Service
	metrics *metrics.Metrics
}

var _ ui.FallbackProvider = (*Bot)(nil)

// New wraps svc for the telegram transport.
func New(svc *Service) *Bot {
	return &Bot{svc: svc, metrics: svc.metrics}
}

type replyFunc func(ctx context.Context, chatID int64, arg string) ([]Reply, error)

// Register adds commands, callbacks, the echo fallback and the navigation
// conversation handler.
func (b *Bot) Register(reg *tg.Registry) error {
	ops := map[string]replyFunc{
		"start": func(context.Context, int64, string) ([]Reply, error) { return b.svc.Start(), nil },
		"select": func(ctx context.Context, chatID int64, _ string) ([]Reply, error) {
			return b.svc.Select(ctx, chatID, "")
		},
		"achi": func(ctx context.Context, chatID int64, _ string) ([]Reply, error) {
			return b.svc.Select(ctx, chatID, "achi")
		},
		"mkh10": func(ctx context.Context, chatID int64, _ string) ([]Reply, error) {
			return b.svc.Select(ctx, chatID, "mkh10")
		},
		"back": func(ctx context.Context, chatID int64, _ string) ([]Reply, error) {
			return b.svc.Back(ctx, chatID)
		},
		"reset": func(ctx context.Context, chatID int64, _ string) ([]Reply, error) {
			return b.svc.Reset(ctx, chatID), nil
		},
		"search": func(ctx context.Context, chatID int64, q string) ([]Reply, error) {
			return b.svc.Search(ctx, chatID, q), nil
		},
		"code": func(_ context.Context, _ int64, code string) ([]Reply, error) {
			return b.svc.Code(code), nil
		},
		"pin": func(ctx context.Context, chatID int64, code string) ([]Reply, error) {
			return b.svc.Pin(ctx, chatID, code, false)
		},
		"unpin": func(ctx context.Context, chatID int64, code string) ([]Reply, error) {
			return b.svc.Unpin(ctx, chatID, code, false)
		},
		"pins": func(ctx context.Context, chatID int64, _ string) ([]Reply, error) {
			return b.svc.Pins(ctx, chatID)
		},
		"caps": func(_ context.Context, _ int64, text string) ([]Reply, error) {
			up, ok := Caps(text)
			if !ok {
				return []Reply{textReply("Використання: /caps <текст>")}, nil
			}
			return []Reply{textReply(up)}, nil
		},
		"stats": func(context.Context, int64, string) ([]Reply, error) { return b.svc.Stats(), nil },
	}

	for _, spec := range commandTable {
		if isClassifierCommand(spec.name) && !b.svc.loaded(spec.name) {
			continue
		}
		op, ok := ops[spec.name]
		if !ok {
			continue
		}
		err := reg.RegisterCommand("/"+spec.name, commands.Command{
			Handler:     b.command(op),
			Description: spec.desc,
			AdminOnly:   spec.admin,
			Hidden:      spec.hidden,
			Aliases:     spec.aliases,
		})
		if err != nil {
			return err
		}
	}

	cbs := map[string]tele.HandlerFunc{
		cbNav: b.callback(b.svc.Nav),
		cbRestart: b.callback(func(ctx context.Context, chatID int64, name string) ([]Reply, error) {
			return b.svc.Restart(ctx, chatID, name)
		}),
		cbPin: b.callback(func(ctx context.Context, chatID int64, ref string) ([]Reply, error) {
			return b.svc.Pin(ctx, chatID, ref, true)
		}),
		cbUnpin: b.callback(func(ctx context.Context, chatID int64, ref string) ([]Reply, error) {
			return b.svc.Unpin(ctx, chatID, ref, true)
		}),
	}
	for key, h := range cbs {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}

	reg.SetTextFallback(b.onText)
	reg.SetCallbackNotFound(b.UnknownCallback())
	b.svc.Sessions().Handle(state.StateNavigating, b.onText)
	return nil
}

// Routes returns the inline query route.
func (b *Bot) Routes() []tg.Route {
	return []tg.Route{router.InlineRoute(b.onQuery, b.metrics)}
}

func (b *Bot) command(op replyFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		replies, err := op(tghelpers.BuildContext(c), tghelpers.ChatID(c), payload(c))
		if err != nil {
			return err
		}
		return send(c, replies)
	}
}

func (b *Bot) callback(op replyFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		replies, err := op(tghelpers.BuildContext(c), tghelpers.ChatID(c), callbacks.Payload(c))
		if err != nil {
			return err
		}
		return send(c, replies)
	}
}

func (b *Bot) onText(c tele.Context) error {
	replies, err := b.svc.Text(tghelpers.BuildContext(c), tghelpers.ChatID(c), c.Text())
	if err != nil {
		return err
	}
	return send(c, replies)
}

func (b *Bot) onQuery(c tele.Context) error {
	up, ok := Caps(c.Query().Text)
	if !ok {
		return nil
	}
	return c.Answer(ui.QueryResponse(0, ui.NewSimpleArticleResult("", "Caps", up)))
}

// UnknownCommand replies to unregistered commands.
func (b *Bot) UnknownCommand() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, unknownCmdText)
	}
}

// UnknownDocument replies to files the bot does not process.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "Я не обробляю файли. Надішліть /start, щоб побачити команди.")
	}
}

// UnknownCallback answers buttons from keyboards the bot no longer serves.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.Answer(c, badActionText)
	}
}

// AdminRejected answers admin-only commands sent by anyone else.
func (b *Bot) AdminRejected() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "Команда доступна лише адміністратору.")
	}
}

func payload(c tele.Context) string {
	if m := c.Message(); m != nil {
		return strings.TrimSpace(m.Payload)
	}
	return ""
}

// send delivers replies in order. The first notice is shown as the callback
// answer; edits fall back to sending when there is no message to edit.
func send(c tele.Context, replies []Reply) error {
	for _, r := range replies {
		if r.Notice != "" {
			if err := tghelpers.Answer(c, r.Notice); err != nil {
				return err
			}
		}
		if r.Text == "" {
			continue
		}
		opts := &tele.SendOptions{ReplyMarkup: keyboard.InlineButtonsRows(r.Buttons...)}
		if r.Markdown {
			opts.ParseMode = tele.ModeMarkdown
		}
		var err error
		if r.Edit && c.Callback() != nil {
			err = tghelpers.EditOrSend(c, r.Text, opts)
		} else {
			err = tghelpers.SendText(c, r.Text, opts)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
