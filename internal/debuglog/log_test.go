package debuglog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelOff, "OFF"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, test := range tests {
		if got := test.level.String(); got != test.expected {
			t.Errorf("LogLevel.String() = %q, want %q", got, test.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{" off ", LevelOff},
		{"INVALID", LevelInfo},
		{"", LevelInfo},
	}

	for _, test := range tests {
		if got := ParseLogLevel(test.input); got != test.expected {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", test.input, got, test.expected)
		}
	}
}

func captureOutput(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := Setup(level); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		_ = Setup(LevelWarn)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debugf("debug message")
	Infof("info message")
	Warnf("warn message %d", 1)
	Errorf("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below WARN leaked: %s", out)
	}
	if !strings.Contains(out, "warn message 1") {
		t.Error("WARN message should appear")
	}
	if !strings.Contains(out, "ERROR") {
		t.Error("level should be rendered in capitals")
	}
}

func TestSetupWithFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")

	var console bytes.Buffer
	SetOutput(&console)
	defer SetOutput(os.Stderr)

	if err := Setup(LevelInfo, logPath); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if GetLevel() != LevelInfo {
		t.Errorf("GetLevel() = %v, want %v", GetLevel(), LevelInfo)
	}

	Debugf("debug message")
	Infof("info message")

	if err := Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(string(content), "debug message") {
		t.Error("DEBUG message should not appear with INFO level")
	}
	if !strings.Contains(string(content), "info message") {
		t.Error("INFO message should be written to the file")
	}
	if !strings.Contains(console.String(), "info message") {
		t.Error("INFO message should also reach the console")
	}
	_ = Setup(LevelWarn)
}

func TestSetupWithLevelOff(t *testing.T) {
	buf := captureOutput(t, LevelOff)

	if GetLevel() != LevelOff {
		t.Errorf("GetLevel() = %v, want %v", GetLevel(), LevelOff)
	}

	Errorf("error message")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestFieldLogger(t *testing.T) {
	buf := captureOutput(t, LevelDebug)

	logger := WithFields(map[string]interface{}{
		"component": "test",
		"count":     42,
	})

	logger.Infof("test message with fields")

	out := buf.String()
	if !strings.Contains(out, "test message with fields") {
		t.Error("Log message should contain the main message")
	}
	if !strings.Contains(out, `"component": "test"`) {
		t.Errorf("Log message should contain field component, got %s", out)
	}
	if !strings.Contains(out, `"count": 42`) {
		t.Errorf("Log message should contain field count, got %s", out)
	}
}
