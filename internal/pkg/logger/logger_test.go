package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitAndLevelChange(t *testing.T) {
	if err := Init("info", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if L() == nil {
		t.Fatal("L() returned nil after Init")
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if got := atomicLevel.Level(); got != zapcore.DebugLevel {
		t.Errorf("level = %v, want debug", got)
	}
}

func TestInit_InvalidLevel(t *testing.T) {
	// Init is once-guarded; exercise the parse path directly.
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) should fail")
	}
}
