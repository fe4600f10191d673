package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLineHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "info",
			level:   slog.LevelInfo,
			message: "document created",
			want:    "2024-06-15T14:30:45Z\tINFO\top-1\tdocument created\n",
		},
		{
			name:    "warn with attrs",
			level:   slog.LevelWarn,
			message: "failed to unlock credential file",
			attrs:   []slog.Attr{slog.String("path", "/srv/users.yml"), slog.Int("attempt", 2)},
			want:    "2024-06-15T14:30:45Z\tWARN\top-1\tfailed to unlock credential file\tpath=/srv/users.yml\tattempt=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &lineHandler{w: &buf, level: slog.LevelDebug, opID: "op-1"}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)
			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLineHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &lineHandler{w: &buf, level: slog.LevelInfo, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("user", "admin")}).(*lineHandler)
	if len(h.attrs) != 1 || len(h2.attrs) != 2 {
		t.Fatalf("attrs = %d / %d, want 1 / 2", len(h.attrs), len(h2.attrs))
	}

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "document deleted", 0)
	r.AddAttrs(slog.String("name", "a.md"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := buf.String(); !strings.HasSuffix(got, "\ta=1\tuser=admin\tname=a.md\n") {
		t.Errorf("Handle() output = %q", got)
	}
}

func TestLineHandler_Enabled(t *testing.T) {
	h := &lineHandler{level: slog.LevelWarn}
	tests := map[slog.Level]bool{
		slog.LevelDebug: false,
		slog.LevelInfo:  false,
		slog.LevelWarn:  true,
		slog.LevelError: true,
	}
	for level, want := range tests {
		if got := h.Enabled(context.Background(), level); got != want {
			t.Errorf("Enabled(%v) = %v, want %v", level, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	var console bytes.Buffer

	logger, f, err := newLogger(dir, "warn", "op-9", &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "name", "a.md")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	for _, out := range []string{string(data), console.String()} {
		if strings.Contains(out, "hidden") {
			t.Errorf("info record written at warn level: %q", out)
		}
		if !strings.Contains(out, "\tWARN\top-9\tshown\tname=a.md\n") {
			t.Errorf("warn record missing: %q", out)
		}
	}

	if _, _, err := newLogger(dir, "loud", "op", nil); err == nil {
		t.Error("newLogger() with bad level expected error")
	}
}
