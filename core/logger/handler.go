package logger

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as single key=value or JSON lines with
// a stable key order.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr // flattened, keys already prefixed
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

// Enabled reports whether level passes the configured minimum.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

// Handle renders r and hands the line to the writer.
func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}

	ts := r.Time.UTC()
	f := fields{"ts": ts.Truncate(time.Millisecond).Format(timeFormatMillis)}
	if h.cfg.format == formatJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.attrs {
		f.add(a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(h.prefix, a, f.add)
		return true
	})
	f["level"] = normalizeLevel(r.Level.String())

	f.addMeta(MetaFrom(ctx))
	h.compactRID(f)
	if f.str("event") == "" {
		f["event"] = cmp.Or(r.Message, "unknown")
	}
	if f.str("component") == "" {
		f["component"] = CompApp
	}
	sanitizeEnumerations(f)
	f.pruneEmpty()

	keys := orderedKeys(f, h.cfg.keyOrder)
	var line []byte
	if h.cfg.format == formatJSON {
		var err error
		if line, err = formatJSONLine(f, keys); err != nil {
			return err
		}
	} else {
		line = formatKVLine(f, keys)
	}
	return h.cfg.writer.Write(r.Level, append(line, '\n'))
}

// WithAttrs returns a copy of the handler carrying attrs under the current
// group prefix.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		flatten(h.prefix, a, func(k string, v slog.Value) {
			clone.attrs = append(clone.attrs, slog.Attr{Key: k, Value: v})
		})
	}
	return &clone
}

// WithGroup returns a copy of the handler that prefixes later keys with name.
func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *structuredHandler) compactRID(f fields) {
	rid := f.str("rid")
	compact := CompactRID(rid)
	if compact == "" || compact == rid {
		return
	}
	if h.cfg.format == formatJSON {
		f.setDefault("rid_full", rid)
	}
	f["rid"] = compact
}

// fields holds one record keyed by normalized attribute names.
type fields map[string]any

func (f fields) add(key string, v slog.Value) {
	if k, val, ok := normalizeAttr(key, v); ok {
		f[k] = val
	}
}

func (f fields) setDefault(key string, val any) {
	if _, ok := f[key]; !ok {
		f[key] = val
	}
}

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (f fields) addMeta(m Meta) {
	if m.RID != "" {
		f.setDefault("rid", m.RID)
	}
	if m.UpdateID != 0 {
		f.setDefault("update_id", int64(m.UpdateID))
	}
	if m.UserID != 0 {
		f.setDefault("user_id", m.UserID)
	}
	if m.ChatID != 0 {
		f.setDefault("chat_id", m.ChatID)
	}
	if m.Handler != "" {
		f.setDefault("handler", m.Handler)
	}
	if m.Classifier != "" {
		f.setDefault("classifier", m.Classifier)
	}
}

func (f fields) pruneEmpty() {
	for k, v := range f {
		if v == nil || v == "" {
			delete(f, k)
		}
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func flatten(prefix string, a slog.Attr, fn func(string, slog.Value)) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			flatten(key, child, fn)
		}
		return
	}
	if key != "" {
		fn(key, v)
	}
}

// durationKey marks duration attributes as milliseconds: "duration" becomes
// "duration_ms" and keys already ending in "_ms" are kept.
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func normalizeAttr(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// orderedKeys lists the keys named in order first, then the rest sorted.
func orderedKeys(f fields, order []string) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]bool, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := len(keys)
	for k := range f {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[rest:])
	return keys
}

func formatJSONLine(f fields, keys []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		data, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func formatKVLine(f fields, keys []string) []byte {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(f[k])
		if strings.IndexFunc(s, needsQuote) >= 0 {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
