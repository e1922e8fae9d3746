package internal

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigDefaults tests that the default values are applied correctly when loading a config.
func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN != "gitfeed.db" || cfg.Storage.Table != "gitfeed_events" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.API.EventsPath != "/api/events" || cfg.API.HealthPath != "/api/health" {
		t.Fatalf("unexpected api path defaults: %+v", cfg.API)
	}
	if cfg.API.DefaultLimit != 50 || cfg.API.MaxLimit != 500 {
		t.Fatalf("unexpected api limit defaults: %+v", cfg.API)
	}
	if cfg.Providers.GitHub.Path != "/webhook/github" {
		t.Fatalf("expected default github path, got %q", cfg.Providers.GitHub.Path)
	}
	if cfg.Providers.GitLab.Path != "/webhook/gitlab" {
		t.Fatalf("expected default gitlab path, got %q", cfg.Providers.GitLab.Path)
	}
	if cfg.Providers.Bitbucket.Path != "/webhook/bitbucket" {
		t.Fatalf("expected default bitbucket path, got %q", cfg.Providers.Bitbucket.Path)
	}
	if cfg.Watermill.Driver != "gochannel" {
		t.Fatalf("expected default watermill driver, got %q", cfg.Watermill.Driver)
	}
	if cfg.Watermill.DefaultTopic != "feed.events" {
		t.Fatalf("expected default topic, got %q", cfg.Watermill.DefaultTopic)
	}
	if cfg.Watermill.GoChannel.OutputChannelBuffer != 64 {
		t.Fatalf("expected default gochannel output buffer, got %d", cfg.Watermill.GoChannel.OutputChannelBuffer)
	}
	if cfg.Watermill.HTTP.Mode != "topic_url" {
		t.Fatalf("expected default http mode topic_url, got %q", cfg.Watermill.HTTP.Mode)
	}
	if cfg.Watermill.RiverQueue.Kind != "gitfeed.event" {
		t.Fatalf("expected default river kind, got %q", cfg.Watermill.RiverQueue.Kind)
	}
}

// TestLoadConfigExpandsEnv tests that environment variables in the config are expanded.
func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("GITFEED_TEST_DSN", "host=db user=feed")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "storage:\n  driver: postgres\n  dsn: ${GITFEED_TEST_DSN}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Storage.DSN != "host=db user=feed" {
		t.Fatalf("expected env expansion, got %q", cfg.Storage.DSN)
	}
}

// TestLoadConfigInvalidRule tests that loading a config with an invalid rule returns an error.
func TestLoadConfigInvalidRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rules:\n  - when: action == \"opened\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for missing emit")
	}
}

// TestLoadConfigTrimsFields tests that the fields in a rule are trimmed correctly.
func TestLoadConfigTrimsFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rules:\n  - when: \"  record.action == \\\"MERGE\\\"  \"\n    emit: \"  feed.merges  \"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load rules config: %v", err)
	}
	if cfg.Rules[0].When != "record.action == \"MERGE\"" {
		t.Fatalf("expected trimmed when, got %q", cfg.Rules[0].When)
	}
	if len(cfg.Rules[0].Emit) != 1 || cfg.Rules[0].Emit[0] != "feed.merges" {
		t.Fatalf("expected trimmed emit, got %v", cfg.Rules[0].Emit)
	}
}

// TestLoadConfigEmitList tests that emit accepts both a scalar and a list.
func TestLoadConfigEmitList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rules:\n  - when: record.action == \"PUSH\"\n    emit:\n      - feed.pushes\n      - feed.all\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load rules config: %v", err)
	}
	if len(cfg.Rules[0].Emit) != 2 || cfg.Rules[0].Emit[1] != "feed.all" {
		t.Fatalf("expected two emit topics, got %v", cfg.Rules[0].Emit)
	}
}
