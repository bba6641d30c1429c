package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Development(t *testing.T) {
	log, err := New(true)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Production(t *testing.T) {
	log, err := New(false)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("production logger should not log debug by default")
	}
}

func TestBuild_Level(t *testing.T) {
	log, err := Build(Config{Level: "warn"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("warn logger should not log info")
	}
	if !log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("warn logger should log error")
	}
}

func TestBuild_InvalidLevel(t *testing.T) {
	if _, err := Build(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(true)
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
