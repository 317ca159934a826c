package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/goleak"

	coreconfig "github.com/m3rciful/achibot/core/config"
)

func TestAsyncWriterCloseStopsLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	var a, b bytes.Buffer
	aw := newAsyncWriter([]sink{{w: &a}, {}, {w: &b}}, 16)
	for i := 0; i < 500; i++ {
		if err := aw.Write(slog.LevelInfo, []byte("line\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := strings.Count(a.String(), "line\n"); got != 500 {
		t.Fatalf("sink a got %d lines, want 500", got)
	}
	if a.String() != b.String() {
		t.Fatal("sinks diverged")
	}
	if err := aw.Write(slog.LevelInfo, []byte("late\n")); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
}

func TestAsyncWriterErrorsSink(t *testing.T) {
	defer goleak.VerifyNone(t)

	var all, errs bytes.Buffer
	aw := newAsyncWriter([]sink{{w: &all, min: slog.LevelDebug}, {w: &errs, min: slog.LevelWarn}}, 1024)
	_ = aw.Write(slog.LevelDebug, []byte("debug\n"))
	_ = aw.Write(slog.LevelInfo, []byte("info\n"))
	_ = aw.Write(slog.LevelWarn, []byte("warn\n"))
	_ = aw.Write(slog.LevelError, []byte("error\n"))
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if all.String() != "debug\ninfo\nwarn\nerror\n" {
		t.Fatalf("all sink = %q", all.String())
	}
	if errs.String() != "warn\nerror\n" {
		t.Fatalf("errors sink = %q", errs.String())
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNavigationKeysOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := WithUpdateMeta(context.Background(), 5, 6, 7)
	ctx = WithClassifier(ctx, "mkh10")
	line := capture(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", CompNav), slog.LevelDebug, "nav.step",
			slog.String("code", "A00"),
			slog.Int("depth", 2),
			slog.String("outcome", "select"),
			slog.String("label", "Холера"),
		)
	})
	assertOrder(t, line, "component=nav", "event=nav.step", "chat_id=7", "classifier=mkh10", "outcome=select", "depth=2", "label=", "code=A00")
}

func TestRatioSampler(t *testing.T) {
	tests := map[string][2]int{
		"1/10": {1, 10},
		"20":   {1, 20},
		"off":  {0, 0},
		"-3":   {0, 0},
		"a/b":  {0, 0},
	}
	for spec, want := range tests {
		num, den := parseRatioSpec(spec)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", spec, num, den, want[0], want[1])
		}
	}

	s := newRatioSampler(2, 3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.Allow())
	}
	want := []bool{true, true, false, true, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Allow sequence = %v, want %v", got, want)
		}
	}

	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("zero ratio must let everything through")
	}
}

func TestSettingsFrom(t *testing.T) {
	st := settingsFrom(nil)
	if st.level != slog.LevelInfo || st.format != formatJSON || st.sampleDen != 50 {
		t.Fatalf("nil config settings = %+v", st)
	}

	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "warning",
		Profile:     "Dev",
		KeysOrder:   "event, level",
		DebugSample: "1/4",
	}}
	st = settingsFrom(cfg)
	if st.level != slog.LevelWarn {
		t.Fatalf("level = %v, want WARN", st.level)
	}
	if st.format != formatKV {
		t.Fatalf("dev profile should default to kv, got %q", st.format)
	}
	if st.profile != "dev" {
		t.Fatalf("profile = %q", st.profile)
	}
	if len(st.keyOrder) != 2 || st.keyOrder[0] != "event" || st.keyOrder[1] != "level" {
		t.Fatalf("key order = %v", st.keyOrder)
	}
	if st.sampleNum != 1 || st.sampleDen != 4 {
		t.Fatalf("sample = %d/%d", st.sampleNum, st.sampleDen)
	}

	cfg.Logging.Format = "json"
	cfg.Logging.Level = "bogus"
	st = settingsFrom(cfg)
	if st.format != formatJSON || st.level != slog.LevelInfo {
		t.Fatalf("explicit json with unknown level = %+v", st)
	}
}
