// ABOUTME: Tests for logger setup.
// ABOUTME: Verifies level parsing and JSON output.
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.WarnLevel},
		{"chatty", zerolog.WarnLevel},
	}
	for _, tt := range tests {
		logger := Setup(tt.in, false, &bytes.Buffer{})
		if logger.GetLevel() != tt.want {
			t.Errorf("Setup(%q) level = %v, want %v", tt.in, logger.GetLevel(), tt.want)
		}
	}
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("info", false, &buf)
	logger.Info().Str("metric", "weight").Msg("logged")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["metric"] != "weight" || entry["message"] != "logged" {
		t.Errorf("unexpected entry: %v", entry)
	}
}
