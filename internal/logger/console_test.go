package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"codeflat/internal/domain"
)

func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "info")

		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.Level() != "info" {
			t.Errorf("expected log level %q, got %q", "info", logger.Level())
		}
		if logger.colorOutput {
			t.Error("expected no color for a non-terminal writer")
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		logger.LogInfo("discarded")
	})
}

func TestNormalizeLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "debug"},
		{" WARN ", "warn"},
		{"warning", "warn"},
		{"Error", "error"},
		{"", "info"},
		{"verbose", "info"},
	}

	for _, tt := range tests {
		if got := normalizeLogLevel(tt.input); got != tt.expected {
			t.Errorf("normalizeLogLevel(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "warn")

	logger.LogDebug("debug message")
	logger.LogInfo("info message")
	logger.LogWarn("warn message")
	logger.Errorf("error %d", 42)

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("expected debug and info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 42") {
		t.Errorf("expected error line, got %q", out)
	}
}

func TestLogFlattenSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogFlattenSummary(&domain.FlattenResult{
		Output:          "out.txt",
		FilesWritten:    3,
		BytesWritten:    2048,
		EstimatedTokens: 120,
		Failed:          []domain.FileFailure{{RelPath: "img.png", Reason: "content is not valid UTF-8 text"}},
	}, 1500*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "Flattened 3 files (2.0 KiB, ~120 tokens) to out.txt in 1.5s") {
		t.Errorf("unexpected summary line: %q", out)
	}
	if !strings.Contains(out, "[WARN] img.png: content is not valid UTF-8 text") {
		t.Errorf("expected warning for failed file, got %q", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n        int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.expected {
			t.Errorf("formatBytes(%d) = %q; want %q", tt.n, got, tt.expected)
		}
	}
}
