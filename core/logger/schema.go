package logger

import "strings"

// Level names as they appear in the level field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var levelNames = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// Known values of the outcome attribute: handler results plus navigation
// step kinds. Unknown outcomes are dropped.
var outcomes = set(
	"ok", "fail", "cancelled", "rate_limited",
	"start", "select", "back", "done", "unknown", "back_at_root", "invalid", "stale", "reset",
)

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

func sanitizeEnumerations(f fields) {
	if s := strings.ToLower(strings.TrimSpace(f.str("status"))); s != "" {
		f["status"] = s
	}
	if o := f.str("outcome"); o != "" {
		o = strings.ToLower(strings.TrimSpace(o))
		if _, ok := outcomes[o]; ok {
			f["outcome"] = o
		} else {
			delete(f, "outcome")
		}
	}
}

// defaultKeyOrder puts identity first, then request metadata, domain
// fields, transport details and errors. Keys not listed follow sorted.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler", "cb_key",
	"classifier", "outcome", "depth", "label", "code", "records",
	"query", "query_len", "hits", "backend",
	"duration_ms", "messages", "kb", "payload",
	"mode", "listen", "public_url", "http_code", "db", "host", "port",
	"err", "err_code", "err_kind", "cause", "attempt", "delay_ms",
}
