package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"attendr/internal/platform/config"
)

func TestInit_FileOutput(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	path := filepath.Join(t.TempDir(), "logs", "attendr.log")
	Init(config.LoggingConfig{Level: "warn", Format: "json", Output: "file", FilePath: path}, "worker")

	log.Info().Msg("dropped")
	log.Warn().Str("date", "2026-03-02").Msg("kept")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var line map[string]interface{}
	if err := json.Unmarshal(raw, &line); err != nil {
		t.Fatalf("log output %q is not a single json line: %v", raw, err)
	}
	if line["service"] != "worker" || line["message"] != "kept" || line["date"] != "2026-03-02" {
		t.Errorf("line = %v", line)
	}
}

func TestInit_UnknownLevel(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	Init(config.LoggingConfig{Level: "verbose"}, "server")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("GlobalLevel() = %v, want info", zerolog.GlobalLevel())
	}
}
