package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesDailyFile(t *testing.T) {
	root := t.TempDir()
	defer zap.ReplaceGlobals(zap.NewNop())

	log, err := New(root, false)
	if err != nil {
		t.Fatal(err)
	}
	log.Infow("booking dispatched", "id", "abc")
	_ = log.Sync()

	name := filepath.Join(root, "logs", time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("log file empty")
	}
}

func TestLevel(t *testing.T) {
	t.Setenv("ZAP_LEVEL", "debug")
	if Level() != zapcore.DebugLevel {
		t.Fatalf("Level = %v", Level())
	}
	t.Setenv("ZAP_LEVEL", "shouty")
	if Level() != zapcore.InfoLevel {
		t.Fatalf("bad value should fall back to info, got %v", Level())
	}
}
