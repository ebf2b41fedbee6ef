package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{"production uses json", "production", true},
		{"development uses pretty", "development", false},
		{"staging uses pretty", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf, Plain: true})
			log.Info("test")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"test"`)
			} else {
				assert.Contains(t, buf.String(), "INF test")
			}
		})
	}
}

func TestNew_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Environment: "development", Writer: &buf})
	log.Info("test")

	assert.Contains(t, buf.String(), `"msg":"test"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := newPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo}, palette{})

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, palette{}))

	log.Warn("channel lost", "channel", "team_42", "attempt", 3, "reason", "read tcp: reset")

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "WRN channel lost")
	assert.Contains(t, out, "channel=team_42")
	assert.Contains(t, out, "attempt=3")
	assert.Contains(t, out, `reason="read tcp: reset"`)
}

func TestPrettyHandler_ColorOutput(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, colorPalette))
	log.Error("boom")

	assert.Contains(t, buf.String(), colorPalette.err+"ERR")
}

func TestPrettyHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, palette{})

	assert.Same(t, base, base.WithGroup(""))

	log := slog.New(base.WithAttrs([]slog.Attr{slog.String("component", "realtime")}).WithGroup("sub"))
	log.Info("event", "table", "team_messages", slog.Group("stats", slog.Int("delivered", 2)))

	out := buf.String()
	assert.Contains(t, out, "component=realtime")
	assert.Contains(t, out, "sub.table=team_messages")
	assert.Contains(t, out, "sub.stats.delivered=2")
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true}, palette{}))
	log.Info("test message")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatValue(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "plain", formatValue(slog.StringValue("plain")))
	assert.Equal(t, `"two words"`, formatValue(slog.StringValue("two words")))
	assert.Equal(t, now.Format(time.RFC3339), formatValue(slog.TimeValue(now)))
	assert.Equal(t, "5s", formatValue(slog.DurationValue(5*time.Second)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.WithError(errors.New("test error")).
		WithField("user_id", "u1").
		WithFields(map[string]any{"table": "ideas"}).
		Info("fetch failed")

	out := buf.String()
	assert.Contains(t, out, `"error":"test error"`)
	assert.Contains(t, out, `"user_id":"u1"`)
	assert.Contains(t, out, `"table":"ideas"`)
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Info("nothing")
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
