package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("CAMPAIGN_TEST_VAR", "set-value")
	if got := EnvOrDefault("CAMPAIGN_TEST_VAR", "fallback"); got != "set-value" {
		t.Errorf("expected set-value, got %q", got)
	}
	if got := EnvOrDefault("CAMPAIGN_TEST_VAR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestStartupLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	old := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = old }()

	NewStartupLogger("campaign-cli").
		Feature("gemini", true).
		Feature("s3AssetStore", false).
		Config("env", "test").
		InitDuration(125 * time.Millisecond).
		Log()

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("startup log is not JSON: %v\nOutput: %s", err, buf.String())
	}

	binary, ok := doc["binary"].(map[string]any)
	if !ok {
		t.Fatal("missing binary dict")
	}
	if binary["name"] != "campaign-cli" {
		t.Errorf("expected binary name campaign-cli, got %v", binary["name"])
	}

	features, ok := doc["features"].(map[string]any)
	if !ok {
		t.Fatal("missing features dict")
	}
	if features["gemini"] != true || features["s3AssetStore"] != false {
		t.Errorf("feature flags wrong: %v", features)
	}

	config, ok := doc["config"].(map[string]any)
	if !ok {
		t.Fatal("missing config dict")
	}
	if config["env"] != "test" {
		t.Errorf("expected env config, got %v", config)
	}
}
