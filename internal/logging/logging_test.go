package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupTo_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupTo(&buf, "warn", false)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Info().Str("module", "test").Msg("hidden")
	log.Warn().Str("module", "test").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"module":"test"`) || !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestSetupTo_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetupTo(&buf, "loud", true)

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s", zerolog.GlobalLevel())
	}
	log.Info().Msg("hello")
	if strings.Contains(buf.String(), "{") {
		t.Fatalf("pretty output should not be JSON: %s", buf.String())
	}
}
