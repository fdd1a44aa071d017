package logger

import "testing"

func TestHelpersUsableWithoutInit(t *testing.T) {
	// Library packages log during their own tests, where Init never runs.
	Info("info message", "k", "v")
	Warn("warn message")
	Debug("debug message")
	Error("error message", "k", 1)
}

func TestWithReturnsChildLogger(t *testing.T) {
	child := With("source", "feeds")
	if child == nil {
		t.Fatal("expected a child logger")
	}
	child.Info("child message")
}

func TestInitReconfigures(t *testing.T) {
	before := Logger
	Init()
	if Logger == nil {
		t.Fatal("Init must leave a usable logger")
	}
	if Logger == before {
		t.Error("Init must install a freshly configured logger")
	}
}
