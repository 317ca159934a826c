package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

// capture logs through a fresh handler and returns the written line.
func capture(t *testing.T, format logFormat, emit func(log *slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]sink{{w: buf, min: slog.LevelDebug}}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	emit(slog.New(handler))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func assertOrder(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx < 0 || idx < pos {
			t.Fatalf("%s not found in order within %s", p, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := capture(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", CompApp), slog.LevelInfo, "nav.start",
			slog.String("status", "OK"),
			slog.String("cause", "unit"),
		)
	})
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=app", "event=nav.start", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	ctx = WithClassifier(ctx, "achi")

	line := capture(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", CompPins), slog.LevelError, "pins.add",
			slog.String("status", "fail"),
			slog.String("err", "boom"),
			slog.String("err_code", "PIN_LIMIT"),
		)
	})
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	assertOrder(t, line, `{"ts":`, `"level":"ERROR"`, `"component":"pins"`, `"event":"pins.add"`,
		`"status":"fail"`, `"rid":"rid-json"`, `"classifier":"achi"`, `"err":"boom"`)
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	ctx := WithRID(context.Background(), rawRID)

	kv := capture(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(kv, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", kv)
	}
	if strings.Contains(kv, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", kv)
	}

	js := capture(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
	})
	for _, want := range []string{`"rid":"` + CompactRID(rawRID) + `"`, `"rid_full":"` + rawRID + `"`, `"ts_unix_nano"`, `"component":"app"`} {
		if !strings.Contains(js, want) {
			t.Fatalf("expected %s in %s", want, js)
		}
	}
}

func TestStructuredHandlerNormalizesValues(t *testing.T) {
	line := capture(t, formatKV, func(log *slog.Logger) {
		log.With("outcome", "back_at_root").WithGroup("tree").With("name", "mkh10").Info("load",
			slog.Duration("took", 1500*1000*1000),
			slog.String("empty", ""),
			slog.String("label", "Кишкові інфекції"),
		)
	})
	for _, want := range []string{"event=load", "tree.name=mkh10", "tree.took_ms=1500", "outcome=back_at_root", `tree.label="Кишкові інфекції"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	if strings.Contains(line, "empty") {
		t.Fatalf("empty attribute kept: %s", line)
	}

	dropped := capture(t, formatKV, func(log *slog.Logger) {
		log.Info("x", slog.String("outcome", "sideways"))
	})
	if strings.Contains(dropped, "outcome") {
		t.Fatalf("unknown outcome kept: %s", dropped)
	}
}

func TestRIDHelpers(t *testing.T) {
	rid := BuildRID(1, -100, 36)
	if rid != "1:-100:36" {
		t.Fatalf("BuildRID = %s", rid)
	}
	if got := CompactRID(rid); got != "1.-2s.10" {
		t.Fatalf("CompactRID = %s", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID kept = %s", got)
	}
	if got := SanitizeLimit("a\x00b\u200bcdef", 3); got != "abc" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}

func TestMetaFrom(t *testing.T) {
	ctx := WithHandler(context.Background(), "nav")
	ctx = WithClassifier(ctx, "mkh10")
	ctx = WithHandler(ctx, "")
	m := MetaFrom(ctx)
	if m.Handler != "nav" || m.Classifier != "mkh10" {
		t.Fatalf("MetaFrom = %+v", m)
	}
	if FromContext(ctx) != L {
		t.Fatal("expected global logger")
	}
	own := slog.New(slog.NewTextHandler(io.Discard, nil))
	if FromContext(WithLogger(ctx, own)) != own {
		t.Fatal("expected stored logger")
	}
}
