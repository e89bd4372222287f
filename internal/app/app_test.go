package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/agbru/perfmon/internal/config"
	apperrors "github.com/agbru/perfmon/internal/errors"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		app, err := New([]string{"perfmon"}, io.Discard)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if app.Config.Interval != config.DefaultInterval {
			t.Errorf("Interval = %s, want %s", app.Config.Interval, config.DefaultInterval)
		}
		if app.Config.Engine != config.DefaultEngine {
			t.Errorf("Engine = %q, want %q", app.Config.Engine, config.DefaultEngine)
		}
	})

	t.Run("flags", func(t *testing.T) {
		t.Parallel()
		args := []string{"perfmon", "-interval", "250ms", "-process", "-engine", "Copy", "-listen", ":9090"}
		app, err := New(args, io.Discard)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if app.Config.Interval != 250*time.Millisecond {
			t.Errorf("Interval = %s, want 250ms", app.Config.Interval)
		}
		if !app.Config.ProcessScope {
			t.Error("ProcessScope = false, want true")
		}
		if app.Config.Engine != "Copy" {
			t.Errorf("Engine = %q, want Copy", app.Config.Engine)
		}
		if app.Config.ListenAddr != ":9090" {
			t.Errorf("ListenAddr = %q, want :9090", app.Config.ListenAddr)
		}
	})

	t.Run("invalid flag", func(t *testing.T) {
		t.Parallel()
		if _, err := New([]string{"perfmon", "-no-such-flag"}, io.Discard); err == nil {
			t.Fatal("expected an error for an unknown flag")
		}
	})

	t.Run("invalid interval", func(t *testing.T) {
		t.Parallel()
		_, err := New([]string{"perfmon", "-interval", "1ms"}, io.Discard)
		var cfgErr apperrors.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("error = %v, want a ConfigError", err)
		}
	})

	t.Run("help", func(t *testing.T) {
		t.Parallel()
		_, err := New([]string{"perfmon", "-h"}, io.Discard)
		if !IsHelpError(err) {
			t.Fatalf("IsHelpError(%v) = false, want true", err)
		}
	})
}

func TestRunVersionFlag(t *testing.T) {
	t.Parallel()

	app, err := New([]string{"perfmon", "-version"}, io.Discard)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var out bytes.Buffer
	code := app.Run(context.Background(), &out)
	if code != apperrors.ExitSuccess {
		t.Errorf("Run = %d, want %d", code, apperrors.ExitSuccess)
	}
	if !strings.Contains(out.String(), "perfmon") {
		t.Errorf("output %q does not mention the program name", out.String())
	}
}

func TestHasVersionFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"empty", nil, false},
		{"single dash", []string{"-version"}, true},
		{"double dash", []string{"--version"}, true},
		{"after other flags", []string{"-quiet", "-version"}, true},
		{"after terminator", []string{"--", "-version"}, false},
		{"absent", []string{"-quiet"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HasVersionFlag(tt.args); got != tt.want {
				t.Errorf("HasVersionFlag(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	PrintVersion(&out)

	for _, want := range []string{"perfmon", "commit", "go version", "platform"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("version output missing %q:\n%s", want, out.String())
		}
	}
}
