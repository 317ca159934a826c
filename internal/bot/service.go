// Package bot adapts the navigation engine to chat interactions: it keeps
// per-chat sessions, turns inputs into engine calls and renders the results
// as replies with inline keyboards.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/metrics"
	"github.com/m3rciful/achibot/core/telegram/format"
	"github.com/m3rciful/achibot/core/telegram/keyboard"
	"github.com/m3rciful/achibot/core/telegram/state"
	"github.com/m3rciful/achibot/internal/classifier"
	"github.com/m3rciful/achibot/internal/navigation"
	"github.com/m3rciful/achibot/internal/pins"
)

// DefaultSearchLimit caps search results when no limit is configured.
const DefaultSearchLimit = 10

const (
	noSessionText  = "Навігацію не розпочато. Надішліть /select, щоб почати."
	resetText      = "Навігацію скинуто. Надішліть /select, щоб почати знову."
	staleNotice    = "Меню застаріло, показую поточне."
	atRootNotice   = "Ви вже на початку."
	reloadedNotice = "Класифікатор оновлено, починаємо спочатку."
	badActionText  = "Невідома дія."
)

// Options tunes a Service.
type Options struct {
	Navigation  navigation.Options
	SearchLimit int
	Metrics     *metrics.Metrics
}

// Service implements the chat-facing operations. It is safe for concurrent
// use; per-chat state lives in the session manager.
type Service struct {
	catalog     *classifier.Catalog
	engines     map[string]*navigation.Engine
	sessions    state.Manager
	pins        pins.Store
	metrics     *metrics.Metrics
	searchLimit int
}

// NewService builds one navigation engine per loaded classifier.
func NewService(catalog *classifier.Catalog, sessions state.Manager, store pins.Store, opts Options) (*Service, error) {
	if catalog == nil {
		return nil, errors.New("bot: nil catalog")
	}
	if sessions == nil {
		sessions = state.NewMemoryManager()
	}
	if store == nil {
		store = pins.NewMemoryStore()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Default
	}
	limit := opts.SearchLimit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	s := &Service{
		catalog:     catalog,
		engines:     make(map[string]*navigation.Engine),
		sessions:    sessions,
		pins:        store,
		metrics:     m,
		searchLimit: limit,
	}
	for _, name := range catalog.Names() {
		tree, _ := catalog.Get(name)
		s.engines[name] = navigation.New(tree, opts.Navigation)
	}
	return s, nil
}

// Sessions exposes the session manager for routing.
func (s *Service) Sessions() state.Manager { return s.sessions }

// Start greets the user.
func (s *Service) Start() []Reply {
	return []Reply{{Text: greeting(s.loaded), Markdown: true}}
}

func (s *Service) loaded(name string) bool {
	_, ok := s.engines[name]
	return ok
}

// Select starts a fresh navigation of the named classifier, or of the
// default one when name is empty.
func (s *Service) Select(ctx context.Context, chatID int64, name string) ([]Reply, error) {
	return s.begin(ctx, chatID, name, false, "")
}

// Restart is Select triggered from a result keyboard: the result message is
// replaced by the root menu.
func (s *Service) Restart(ctx context.Context, chatID int64, name string) ([]Reply, error) {
	return s.begin(ctx, chatID, name, true, "")
}

func (s *Service) begin(ctx context.Context, chatID int64, name string, edit bool, notice string) ([]Reply, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = s.catalog.Default().Name()
	}
	eng, ok := s.engines[name]
	if !ok {
		return []Reply{textReply(fmt.Sprintf("Класифікатор %q не завантажено.", name))}, nil
	}
	st, v := eng.Start()
	s.save(chatID, name, st)
	s.observe(ctx, chatID, name, "start", st.Depth())
	return s.render(name, v, edit, notice), nil
}

// Text handles free text. While navigating it is a menu selection or the
// back label; otherwise it is echoed back.
func (s *Service) Text(ctx context.Context, chatID int64, text string) ([]Reply, error) {
	sess, eng, ok := s.session(chatID)
	if !ok {
		return []Reply{textReply(text)}, nil
	}
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		return []Reply{textReply(unknownCmdText)}, nil
	}
	return s.step(ctx, chatID, sess, eng, eng.Parse(text), false)
}

// Back moves one level up in the chat's current menu.
func (s *Service) Back(ctx context.Context, chatID int64) ([]Reply, error) {
	sess, eng, ok := s.session(chatID)
	if !ok {
		return []Reply{textReply(noSessionText)}, nil
	}
	return s.step(ctx, chatID, sess, eng, navigation.Back(), false)
}

// Reset discards the chat's navigation state.
func (s *Service) Reset(ctx context.Context, chatID int64) []Reply {
	if s.sessions.Clear(chatID) {
		s.observe(ctx, chatID, "", "reset", 0)
	}
	s.metrics.Sessions.Set(float64(s.sessions.Len()))
	return []Reply{textReply(resetText)}
}

// Nav resolves a menu button token against the chat's current menu. A token
// drawn on any other menu is stale and the current menu is re-sent.
func (s *Service) Nav(ctx context.Context, chatID int64, payload string) ([]Reply, error) {
	tok, err := parseToken(payload)
	if err != nil {
		logger.Debug(ctx, logger.CompNav, "nav.token",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return []Reply{{Notice: badActionText}}, nil
	}
	sess, eng, ok := s.session(chatID)
	if !ok {
		return []Reply{{Text: noSessionText, Edit: true, Notice: "Навігацію завершено."}}, nil
	}
	st := navigation.State{Path: sess.Path}
	v, err := eng.Render(st)
	if errors.Is(err, navigation.ErrInvalidPath) {
		return s.begin(ctx, chatID, sess.Classifier, true, reloadedNotice)
	}
	if err != nil {
		return nil, err
	}
	if tok.depth != st.Depth() || tok.menu != menuKey(sess.Classifier, sess.Path) {
		s.observe(ctx, chatID, sess.Classifier, "stale", st.Depth())
		return s.render(sess.Classifier, v, true, staleNotice), nil
	}
	if tok.back {
		return s.step(ctx, chatID, sess, eng, navigation.Back(), true)
	}
	choices := v.Choices()
	if tok.index >= len(choices) {
		s.observe(ctx, chatID, sess.Classifier, "stale", st.Depth())
		return s.render(sess.Classifier, v, true, staleNotice), nil
	}
	return s.step(ctx, chatID, sess, eng, navigation.Select(choices[tok.index].Label), true)
}

func (s *Service) step(ctx context.Context, chatID int64, sess state.Session, eng *navigation.Engine, in navigation.Input, edit bool) ([]Reply, error) {
	name := sess.Classifier
	next, v, err := eng.Step(navigation.State{Path: sess.Path}, in)
	outcome := "select"
	if in.IsBack() {
		outcome = "back"
	}
	notice := ""
	switch {
	case errors.Is(err, navigation.ErrInvalidPath):
		s.observe(ctx, chatID, name, "invalid", len(sess.Path))
		return s.begin(ctx, chatID, name, edit, reloadedNotice)
	case errors.Is(err, navigation.ErrUnknownChildSelection):
		outcome = "unknown"
		notice = fmt.Sprintf("Немає пункту «%s». Оберіть зі списку.", in.Label())
	case errors.Is(err, navigation.ErrBackAtRoot):
		outcome = "back_at_root"
		notice = atRootNotice
	case err != nil:
		return nil, err
	case v.Done:
		outcome = "done"
	}
	s.save(chatID, name, next)
	s.observe(ctx, chatID, name, outcome, next.Depth())
	return s.render(name, v, edit, notice), nil
}

// render turns a view into replies. Notices ride as a callback toast when
// editing and as a separate message otherwise.
func (s *Service) render(name string, v navigation.View, edit bool, notice string) []Reply {
	title := s.catalog.Title(name)
	var out []Reply
	if v.Done {
		out = recordsReply(name, title, v)
	} else {
		out = []Reply{menuReply(name, title, v)}
	}
	if edit {
		out[0].Edit = true
		out[0].Notice = notice
		return out
	}
	if notice != "" {
		out = append([]Reply{textReply(notice)}, out...)
	}
	return out
}

func (s *Service) session(chatID int64) (state.Session, *navigation.Engine, bool) {
	sess, ok := s.sessions.Get(chatID)
	if !ok || sess.State != state.StateNavigating {
		return state.Session{}, nil, false
	}
	eng, ok := s.engines[sess.Classifier]
	if !ok {
		return state.Session{}, nil, false
	}
	return sess, eng, true
}

func (s *Service) save(chatID int64, name string, st navigation.State) {
	s.sessions.Save(chatID, state.Session{
		State:      state.StateNavigating,
		Classifier: name,
		Path:       st.Path,
	})
	s.metrics.Sessions.Set(float64(s.sessions.Len()))
}

func (s *Service) observe(ctx context.Context, chatID int64, name, outcome string, depth int) {
	if name != "" {
		s.metrics.NavSteps.WithLabelValues(name, outcome).Inc()
	}
	logger.Debug(logger.WithClassifier(ctx, name), logger.CompNav, "nav.step",
		slog.Int64("chat_id", chatID),
		slog.String("outcome", outcome),
		slog.Int("depth", depth),
	)
}

// Search looks up codes and names. A navigating chat searches its current
// classifier; otherwise every classifier is searched in catalog order.
func (s *Service) Search(ctx context.Context, chatID int64, query string) []Reply {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Reply{textReply("Використання: /search <текст>")}
	}
	names := s.catalog.Names()
	if sess, _, ok := s.session(chatID); ok {
		names = []string{sess.Classifier}
	}

	type found struct {
		name string
		hit  classifier.Hit
	}
	var hits []found
	for _, name := range names {
		left := s.searchLimit - len(hits)
		if left <= 0 {
			break
		}
		tree, _ := s.catalog.Get(name)
		for _, h := range tree.Search(query, left) {
			hits = append(hits, found{name: name, hit: h})
		}
	}
	logger.Debug(ctx, logger.CompNav, "search",
		slog.Int64("chat_id", chatID),
		slog.Int("hits", len(hits)),
	)
	if len(hits) == 0 {
		return []Reply{textReply(fmt.Sprintf("Нічого не знайдено за запитом «%s».", query))}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Результати пошуку «%s»*", format.MD(query))
	btns := make([]keyboard.InlineBtn, 0, len(hits))
	for _, f := range hits {
		fmt.Fprintf(&b, "\n\n*%s* %s\n_%s_",
			format.MD(f.hit.Record.Code),
			format.MD(f.hit.Record.NameUA),
			format.MD(s.catalog.Title(f.name)+crumbSep+strings.Join(f.hit.Path, crumbSep)),
		)
		if len(btns) < maxPinButtons {
			btns = append(btns, keyboard.InlineBtn{Text: "📌 " + f.hit.Record.Code, Unique: cbPin, Data: f.name + ":" + f.hit.Record.Code})
		}
	}
	return withButtons(b.String(), keyboard.Chunk(btns, pinButtonsPerRow))
}

// Code shows one record with its breadcrumb path.
func (s *Service) Code(code string) []Reply {
	code = strings.TrimSpace(code)
	if code == "" {
		return []Reply{textReply("Використання: /code <код>")}
	}
	name, hit, ok := s.catalog.FindCode(code)
	if !ok {
		return []Reply{textReply(fmt.Sprintf("Код «%s» не знайдено.", code))}
	}
	rows := [][]keyboard.InlineBtn{{{Text: "📌 Закріпити", Unique: cbPin, Data: name + ":" + hit.Record.Code}}}
	return withButtons(hitText(s.catalog.Title(name), hit), rows)
}

// Pin pins a code for the chat. ref is either "<classifier>:<code>" from a
// button or a bare code typed by the user. Button presses get a toast only.
func (s *Service) Pin(ctx context.Context, chatID int64, ref string, fromButton bool) ([]Reply, error) {
	name, code, ok := s.resolveRef(ref)
	if !ok {
		return s.notice(fmt.Sprintf("Код «%s» не знайдено.", strings.TrimSpace(ref)), fromButton), nil
	}
	added, err := s.pins.Add(ctx, pins.Pin{ChatID: chatID, Classifier: name, Code: code})
	switch {
	case errors.Is(err, pins.ErrLimitReached):
		return s.notice(fmt.Sprintf("Досягнуто ліміту закріплених кодів (%d).", pins.MaxPerChat), fromButton), nil
	case err != nil:
		return nil, fmt.Errorf("bot: pin %s: %w", code, err)
	case added:
		logger.Info(ctx, logger.CompPins, "pin",
			slog.Int64("chat_id", chatID),
			slog.String("classifier", name),
			slog.String("code", code),
		)
		return s.notice(fmt.Sprintf("📌 Код %s закріплено.", code), fromButton), nil
	default:
		return s.notice(fmt.Sprintf("Код %s вже закріплено.", code), fromButton), nil
	}
}

// Unpin removes a pin. From a button the pin list is re-rendered in place.
func (s *Service) Unpin(ctx context.Context, chatID int64, ref string, fromButton bool) ([]Reply, error) {
	name, code, ok := s.splitRef(ref)
	if !ok {
		return s.notice("Використання: /unpin <код>", fromButton), nil
	}
	if name == "" {
		list, err := s.pins.List(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("bot: list pins: %w", err)
		}
		for _, p := range list {
			if strings.EqualFold(p.Code, code) {
				name, code = p.Classifier, p.Code
				break
			}
		}
	}
	removed, err := s.pins.Remove(ctx, chatID, name, code)
	if err != nil {
		return nil, fmt.Errorf("bot: unpin %s: %w", code, err)
	}
	msg := fmt.Sprintf("Код %s не було закріплено.", code)
	if removed {
		msg = fmt.Sprintf("Код %s відкріплено.", code)
		logger.Info(ctx, logger.CompPins, "unpin",
			slog.Int64("chat_id", chatID),
			slog.String("classifier", name),
			slog.String("code", code),
		)
	}
	if !fromButton {
		return []Reply{textReply(msg)}, nil
	}
	out, err := s.Pins(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out[0].Edit = true
	out[0].Notice = msg
	return out, nil
}

// Pins lists the chat's pinned codes with an unpin button each.
func (s *Service) Pins(ctx context.Context, chatID int64) ([]Reply, error) {
	list, err := s.pins.List(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("bot: list pins: %w", err)
	}
	if len(list) == 0 {
		return []Reply{textReply("Немає закріплених кодів. Закріпіть код кнопкою 📌 або командою /pin <код>.")}, nil
	}
	var b strings.Builder
	b.WriteString("*Закріплені коди*")
	btns := make([]keyboard.InlineBtn, 0, len(list))
	for _, p := range list {
		nameUA := ""
		if tree, ok := s.catalog.Get(p.Classifier); ok {
			if hit, ok := tree.FindCode(p.Code); ok {
				nameUA = hit.Record.NameUA
			}
		}
		fmt.Fprintf(&b, "\n*%s* %s _(%s)_", format.MD(p.Code), format.MD(nameUA), format.MD(s.catalog.Title(p.Classifier)))
		btns = append(btns, keyboard.InlineBtn{Text: "❌ " + p.Code, Unique: cbUnpin, Data: p.Classifier + ":" + p.Code})
	}
	return withButtons(b.String(), keyboard.Chunk(btns, pinButtonsPerRow)), nil
}

// resolveRef turns a pin reference into a known (classifier, code) pair.
func (s *Service) resolveRef(ref string) (string, string, bool) {
	name, code, ok := s.splitRef(ref)
	if !ok {
		return "", "", false
	}
	if name == "" {
		found, hit, ok := s.catalog.FindCode(code)
		if !ok {
			return "", "", false
		}
		return found, hit.Record.Code, true
	}
	tree, ok := s.catalog.Get(name)
	if !ok {
		return "", "", false
	}
	hit, ok := tree.FindCode(code)
	if !ok {
		return "", "", false
	}
	return tree.Name(), hit.Record.Code, true
}

// splitRef splits "<classifier>:<code>". A bare code yields an empty
// classifier. ACHI codes contain dashes, never colons.
func (s *Service) splitRef(ref string) (string, string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", false
	}
	name, code, ok := strings.Cut(ref, ":")
	if !ok {
		return "", ref, true
	}
	name = strings.ToLower(strings.TrimSpace(name))
	code = strings.TrimSpace(code)
	if name == "" || code == "" {
		return "", "", false
	}
	return name, code, true
}

func (s *Service) notice(msg string, toast bool) []Reply {
	if toast {
		return []Reply{{Notice: msg}}
	}
	return []Reply{textReply(msg)}
}

// Caps upper-cases text. The bool is false for blank input.
func Caps(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return strings.ToUpper(text), true
}

// Stats reports per-classifier tree statistics and the active session count.
func (s *Service) Stats() []Reply {
	var b strings.Builder
	b.WriteString("*Статистика*")
	for _, name := range s.catalog.Names() {
		tree, _ := s.catalog.Get(name)
		st := tree.Stats()
		fmt.Fprintf(&b, "\n\n*%s* (%s)\nкласів: %d, проміжних вузлів: %d, кінцевих вузлів: %d, кодів: %d, глибина: %d",
			format.MD(s.catalog.Title(name)), format.MD(name),
			st.Classes, st.Branches, st.LeafNodes, st.Records, st.MaxDepth)
	}
	fmt.Fprintf(&b, "\n\nАктивних сесій: %d", s.sessions.Len())
	return []Reply{{Text: b.String(), Markdown: true}}
}
