package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
	if cfg.FileMaxSizeMB != 5 || cfg.FileMaxBackups != 3 {
		t.Errorf("Rotation defaults = %d MB / %d backups, want 5 / 3",
			cfg.FileMaxSizeMB, cfg.FileMaxBackups)
	}
}

func TestSetup_WritesToOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Output: buf})

	logger.Info().Msg("ingestion started")

	if !strings.Contains(buf.String(), "ingestion started") {
		t.Errorf("Expected output to contain message, got %q", buf.String())
	}
}

func TestSetup_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "ingest.log")
	buf := &bytes.Buffer{}

	logger := Setup(Config{Level: LevelInfo, Output: buf, File: logFile})
	logger.Info().Msg("rotated file message")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	if !strings.Contains(string(data), "rotated file message") {
		t.Errorf("Log file missing message, got %q", string(data))
	}
	if !strings.Contains(buf.String(), "rotated file message") {
		t.Error("Console output should receive the message too")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("orchestrator")
	logger.Info().Msg("window committed")

	output := buf.String()
	if !strings.Contains(output, "orchestrator") {
		t.Errorf("Expected component field in output, got %q", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("test")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered out at Warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be included at Warn level")
	}
}
