package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tu "github.com/joeychilson/soundify/internal/testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Matcher.HighThreshold != 0.92 || config.Matcher.Floor != 0.55 {
		t.Errorf("matcher defaults = %+v", config.Matcher)
	}
	if config.Run.BatchSize != 50 || config.Run.SearchCandidates != 5 || config.Run.MaxRetries != 3 {
		t.Errorf("run defaults = %+v", config.Run)
	}
	if config.Credentials.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("openai defaults = %+v", config.Credentials.OpenAI)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[credentials.soundcloud]
client_id = "cid"
user_id = "42"

[matcher]
high_threshold = 0.9
floor = 0.5
title_weight = 0.7
top_k = 2

[run]
batch_size = 25
search_candidates = 8
workers = 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Credentials.SoundCloud.ClientID != "cid" || config.Credentials.SoundCloud.UserID != "42" {
		t.Errorf("credentials = %+v", config.Credentials.SoundCloud)
	}
	if config.Matcher.TitleWeight != 0.7 || config.Run.BatchSize != 25 {
		t.Errorf("config = %+v", config)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadConfig() expected error for missing file")
	}
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("CreateConfigFile() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// Refuses to clobber an existing file.
	if err := CreateConfigFile(path); err == nil {
		t.Error("CreateConfigFile() expected error for existing file")
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("created config does not parse: %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("created config does not validate: %v", err)
	}
}

func TestCreateConfigFileRelativePath(t *testing.T) {
	wd := tu.MustGetwd(t)
	tu.MustChdir(t, t.TempDir())
	defer tu.MustChdir(t, wd)

	if err := CreateConfigFile("config.toml"); err != nil {
		t.Fatalf("CreateConfigFile() error = %v", err)
	}
	tu.AssertFileExists(t, "config.toml")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SOUNDIFY_SOUNDCLOUD_CLIENT_ID", "env-client")
	t.Setenv("SOUNDIFY_OPENAI_API_KEY", "env-key")

	config := DefaultConfig()
	config.Credentials.SoundCloud.ClientID = "file-client"
	config.Credentials.Spotify.ClientID = "file-spotify"
	config.ApplyEnv()

	if config.Credentials.SoundCloud.ClientID != "env-client" {
		t.Errorf("env override lost: %q", config.Credentials.SoundCloud.ClientID)
	}
	if config.Credentials.OpenAI.APIKey != "env-key" {
		t.Errorf("env override lost: %q", config.Credentials.OpenAI.APIKey)
	}
	// Unset env vars leave file values alone.
	if config.Credentials.Spotify.ClientID != "file-spotify" {
		t.Errorf("file value clobbered: %q", config.Credentials.Spotify.ClientID)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero search candidates", func(c *Config) { c.Run.SearchCandidates = 0 }, false},
		{"negative search candidates", func(c *Config) { c.Run.SearchCandidates = -1 }, false},
		{"zero batch size", func(c *Config) { c.Run.BatchSize = 0 }, false},
		{"zero workers", func(c *Config) { c.Run.Workers = 0 }, false},
		{"negative retries", func(c *Config) { c.Run.MaxRetries = -1 }, false},
		{"zero retries allowed", func(c *Config) { c.Run.MaxRetries = 0 }, true},
		{"threshold above one", func(c *Config) { c.Matcher.HighThreshold = 1.2 }, false},
		{"floor above threshold", func(c *Config) { c.Matcher.Floor = 0.95 }, false},
		{"title weight below half", func(c *Config) { c.Matcher.TitleWeight = 0.3 }, false},
		{"zero top k", func(c *Config) { c.Matcher.TopK = 0 }, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := DefaultConfig()
			test.mutate(config)

			err := config.Validate()
			if test.valid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !test.valid {
				if err == nil {
					t.Fatal("Validate() expected error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
				}
			}
		})
	}
}
