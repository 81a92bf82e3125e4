package logger_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/logger"
)

func observed() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.FromCore(core), logs
}

func TestLogger_RedactsSecrets(t *testing.T) {
	log, logs := observed()
	log.Info("config loaded", "api_key", "AIza-secret", "GEMINI_API_KEY", "x", "webhook_secret", "s", "model", "gemini-1.5-flash")

	ctx := logs.All()[0].ContextMap()
	for _, k := range []string{"api_key", "GEMINI_API_KEY", "webhook_secret"} {
		if ctx[k] != "[REDACTED]" {
			t.Errorf("%s = %v, want redacted", k, ctx[k])
		}
	}
	if ctx["model"] != "gemini-1.5-flash" {
		t.Errorf("model should pass through, got %v", ctx["model"])
	}
}

func TestLogger_HashesSessionID(t *testing.T) {
	log, logs := observed()
	log.Debug("step", "session_id", "3f0c1e2a-0000-4000-8000-000000000000")
	got, _ := logs.All()[0].ContextMap()["session_id"].(string)
	if !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Errorf("session_id = %q, want a short hash", got)
	}

	salted, slogs := observed()
	salted.WithHashSalt("pepper").Debug("step", "session_id", "3f0c1e2a-0000-4000-8000-000000000000")
	if slogs.All()[0].ContextMap()["session_id"] == got {
		t.Error("salt should change the hash")
	}
}

func TestLogger_With(t *testing.T) {
	log, logs := observed()
	log.With("component", "pipeline", "token", "t").Warn("gate failed", "problems", 2)
	entry := logs.All()[0]
	ctx := entry.ContextMap()
	if ctx["component"] != "pipeline" || ctx["token"] != "[REDACTED]" {
		t.Errorf("unexpected context %v", ctx)
	}
	if entry.Level != zap.WarnLevel {
		t.Errorf("level = %v", entry.Level)
	}
}

func TestLogger_OddKeyValues(t *testing.T) {
	log, logs := observed()
	log.Error("odd", "dangling")
	if logs.FilterMessage("odd").Len() != 1 {
		t.Fatalf("expected the entry to be logged, got %d entries", logs.Len())
	}
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"development", "production", ""} {
		l, err := logger.New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Sync()
	}
	logger.Nop().Info("discarded")
}
