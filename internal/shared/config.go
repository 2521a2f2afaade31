package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Matcher     MatcherConfig     `toml:"matcher"`
	Run         RunConfig         `toml:"run"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	SoundCloud SoundCloudConfig `toml:"soundcloud"`
	Spotify    SpotifyConfig    `toml:"spotify"`
	OpenAI     OpenAIConfig     `toml:"openai"`
}

// SoundCloudConfig contains SoundCloud api-v2 access settings.
type SoundCloudConfig struct {
	ClientID string `toml:"client_id"`
	UserID   string `toml:"user_id"`
}

// SpotifyConfig contains Spotify API credentials.
//
// RefreshToken is a previously issued token with playlist-modify scope;
// acquiring one is left to the usual OAuth tooling.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
}

// OpenAIConfig contains settings for the chat-completion endpoint used to
// break match ties.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// MatcherConfig contains the tunable thresholds of the resolution engine.
type MatcherConfig struct {
	HighThreshold       float64 `toml:"high_threshold"`        // accept without AI above this
	Floor               float64 `toml:"floor"`                 // reject below this
	Margin              float64 `toml:"margin"`                // minimum top-two gap for a deterministic accept
	AIFallbackFloor     float64 `toml:"ai_fallback_floor"`     // scorer-only acceptance floor when AI is unavailable
	TitleWeight         float64 `toml:"title_weight"`          // artist weight is 1 - title_weight
	DurationToleranceMS int     `toml:"duration_tolerance_ms"` // duration delta allowed before penalties
	TopK                int     `toml:"top_k"`                 // candidates forwarded to the AI judge
}

// RunConfig contains orchestration settings for a migration run.
type RunConfig struct {
	BatchSize        int     `toml:"batch_size"`        // tracks per logical batch
	SearchCandidates int     `toml:"search_candidates"` // candidates fetched per track
	Workers          int     `toml:"workers"`           // concurrent resolution workers
	MaxRetries       int     `toml:"max_retries"`       // attempts per provider call
	RetryDelayMS     int     `toml:"retry_delay_ms"`    // initial backoff delay
	SearchRate       float64 `toml:"search_rate"`       // search requests per second
	LLMRate          float64 `toml:"llm_rate"`          // judge requests per second
	Limit            int     `toml:"limit"`             // processed-track cap, 0 = unlimited
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials from SOUNDIFY_-prefixed environment variables.
//
// Environment values win over file values so secrets can stay out of config.toml.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"SOUNDIFY_SOUNDCLOUD_CLIENT_ID", &c.Credentials.SoundCloud.ClientID},
		{"SOUNDIFY_SOUNDCLOUD_USER_ID", &c.Credentials.SoundCloud.UserID},
		{"SOUNDIFY_SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID},
		{"SOUNDIFY_SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret},
		{"SOUNDIFY_SPOTIFY_REDIRECT_URI", &c.Credentials.Spotify.RedirectURI},
		{"SOUNDIFY_SPOTIFY_REFRESH_TOKEN", &c.Credentials.Spotify.RefreshToken},
		{"SOUNDIFY_OPENAI_API_KEY", &c.Credentials.OpenAI.APIKey},
		{"SOUNDIFY_OPENAI_BASE_URL", &c.Credentials.OpenAI.BaseURL},
		{"SOUNDIFY_OPENAI_MODEL", &c.Credentials.OpenAI.Model},
	}

	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

// Validate checks the configuration surface consumed by the resolution engine.
//
// Called once at startup; a failure here is fatal before any track is processed.
func (c *Config) Validate() error {
	if c.Run.SearchCandidates <= 0 {
		return fmt.Errorf("%w: search_candidates must be positive, got %d", ErrInvalidConfig, c.Run.SearchCandidates)
	}
	if c.Run.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.Run.BatchSize)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Run.Workers)
	}
	if c.Run.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be non-negative, got %d", ErrInvalidConfig, c.Run.MaxRetries)
	}
	if c.Matcher.HighThreshold <= 0 || c.Matcher.HighThreshold > 1 {
		return fmt.Errorf("%w: high_threshold must be in (0, 1], got %f", ErrInvalidConfig, c.Matcher.HighThreshold)
	}
	if c.Matcher.Floor < 0 || c.Matcher.Floor >= c.Matcher.HighThreshold {
		return fmt.Errorf("%w: floor must be in [0, high_threshold), got %f", ErrInvalidConfig, c.Matcher.Floor)
	}
	if c.Matcher.TitleWeight < 0.5 || c.Matcher.TitleWeight > 1 {
		return fmt.Errorf("%w: title_weight must be in [0.5, 1], got %f", ErrInvalidConfig, c.Matcher.TitleWeight)
	}
	if c.Matcher.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, c.Matcher.TopK)
	}
	return nil
}
