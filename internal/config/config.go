package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv       = "REDDIT_CURATOR_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	logLevelEnv         = "LOG_LEVEL"
	redditClientIDEnv   = "CLIENT_ID"
	redditSecretEnv     = "CLIENT_SECRET"
	redditUsernameEnv   = "REDDIT_USERNAME"
	redditPasswordEnv   = "PASSWORD"
	redditUserAgentEnv  = "REDDIT_USER_AGENT"
	metricsListenEnv    = "METRICS_LISTEN_ADDR"
	defaultUserAgent    = "RedditCurator/1.0"
	defaultOutputDir    = "data"
	defaultSourceName   = "dump"
	defaultSubreddit    = "Amd"
	defaultMaxTitleRune = 60
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	Curation CurationConfig `yaml:"curation"`
	Progress ProgressConfig `yaml:"progress"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RedditConfig carries OAuth credentials and endpoints.
type RedditConfig struct {
	ClientID          string `yaml:"clientId"`
	ClientSecret      string `yaml:"clientSecret"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	UserAgent         string `yaml:"userAgent"`
	AuthURL           string `yaml:"authUrl"`
	APIURL            string `yaml:"apiUrl"`
	RequestsPerMinute int    `yaml:"requestsPerMinute"`
	MaxRetries        int    `yaml:"maxRetries"`
}

// SourceConfig describes which strategy feeds the pipeline and how.
type SourceConfig struct {
	Strategy      string            `yaml:"strategy"`
	Subreddit     string            `yaml:"subreddit"`
	Query         string            `yaml:"query"`
	Sort          string            `yaml:"sort"`
	TimeFilter    string            `yaml:"timeFilter"`
	Limit         int               `yaml:"limit"`
	IncludeOver18 bool              `yaml:"includeOver18"`
	DumpPath      string            `yaml:"dumpPath"`
	Options       map[string]string `yaml:"options"`
}

// OutputConfig places the result tree.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// CurationConfig is the full set of filter constants. It is built once at
// startup and shared by pointer with the filter chain, the curator and the
// sentiment engine.
type CurationConfig struct {
	TechnicalKeywords        []string `yaml:"technicalKeywords"`
	ReputationKeywords       []string `yaml:"reputationKeywords"`
	ExclusionKeywords        []string `yaml:"exclusionKeywords"`
	RelevantFlairs           []string `yaml:"relevantFlairs"`
	MinPostUpvotes           int      `yaml:"minPostUpvotes"`
	MinCommentUpvotes        int      `yaml:"minCommentUpvotes"`
	SentimentThreshold       float64  `yaml:"sentimentThreshold"`
	PositiveEmotions         []string `yaml:"positiveEmotions"`
	PositiveEmotionThreshold float64  `yaml:"positiveEmotionThreshold"`
	EscalationSampleSize     int      `yaml:"escalationSampleSize"`
	MinOpinionatedComments   int      `yaml:"minOpinionatedComments"`
	MinPositiveComments      int      `yaml:"minPositiveComments"`
	MinRetainedComments      int      `yaml:"minRetainedComments"`
}

// ProgressConfig tunes the reporter channel.
type ProgressConfig struct {
	BufferSize      int     `yaml:"bufferSize"`
	EventsPerSecond float64 `yaml:"eventsPerSecond"`
	Burst           int     `yaml:"burst"`
	MaxTitleLength  int     `yaml:"maxTitleLength"`
}

// DatabaseConfig enables the optional verdict ledger.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// MetricsConfig exposes Prometheus metrics when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// The file is decoded over the defaults, so keys it sets win even when the
// value is zero and keys it omits keep their default.
func Load() Config {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := Default()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Validate reports settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	cur := c.Curation
	if len(cur.TechnicalKeywords) == 0 {
		errs = append(errs, errors.New("curation: technicalKeywords must not be empty"))
	}
	if cur.SentimentThreshold < 0 || cur.SentimentThreshold >= 1 {
		errs = append(errs, fmt.Errorf("curation: sentimentThreshold %.2f outside [0, 1)", cur.SentimentThreshold))
	}
	if cur.PositiveEmotionThreshold < 0 || cur.PositiveEmotionThreshold > 1 {
		errs = append(errs, fmt.Errorf("curation: positiveEmotionThreshold %.2f outside [0, 1]", cur.PositiveEmotionThreshold))
	}
	if cur.EscalationSampleSize <= 0 {
		errs = append(errs, errors.New("curation: escalationSampleSize must be positive"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output: dir must be set"))
	}
	if c.Progress.BufferSize <= 0 {
		errs = append(errs, errors.New("progress: bufferSize must be positive"))
	}

	switch c.Source.Strategy {
	case "reddit":
		if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
			errs = append(errs, errors.New("reddit: client id and secret are required"))
		}
	case "dump":
		if c.Source.DumpPath == "" {
			errs = append(errs, errors.New("source: dumpPath is required for the dump strategy"))
		}
	}

	return errors.Join(errs...)
}

// Redacted returns a copy safe to print: secrets are masked.
func (c Config) Redacted() Config {
	const mask = "***"
	if c.Reddit.ClientSecret != "" {
		c.Reddit.ClientSecret = mask
	}
	if c.Reddit.Password != "" {
		c.Reddit.Password = mask
	}
	if c.Database.DSN != "" {
		c.Database.DSN = mask
	}
	return c
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(redditClientIDEnv); v != "" {
		c.Reddit.ClientID = v
	}
	if v := os.Getenv(redditSecretEnv); v != "" {
		c.Reddit.ClientSecret = v
	}
	if v := os.Getenv(redditUsernameEnv); v != "" {
		c.Reddit.Username = v
	}
	if v := os.Getenv(redditPasswordEnv); v != "" {
		c.Reddit.Password = v
	}
	if v := os.Getenv(redditUserAgentEnv); v != "" {
		c.Reddit.UserAgent = v
	}

	if v := os.Getenv(metricsListenEnv); v != "" {
		c.Metrics.ListenAddr = v
	}
}

// Default returns a configuration that runs against a local dump file.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Reddit: RedditConfig{
			UserAgent:         defaultUserAgent,
			AuthURL:           "https://www.reddit.com/api/v1/access_token",
			APIURL:            "https://oauth.reddit.com",
			RequestsPerMinute: 60,
			MaxRetries:        3,
		},
		Source: SourceConfig{
			Strategy:   defaultSourceName,
			Subreddit:  defaultSubreddit,
			Sort:       "top",
			TimeFilter: "all",
			Limit:      25,
		},
		Output:   OutputConfig{Dir: defaultOutputDir},
		Curation: DefaultCuration(),
		Progress: ProgressConfig{
			BufferSize:      64,
			EventsPerSecond: 10,
			Burst:           5,
			MaxTitleLength:  defaultMaxTitleRune,
		},
	}
}

// DefaultCuration holds the stock keyword sets and thresholds.
func DefaultCuration() CurationConfig {
	return CurationConfig{
		TechnicalKeywords: []string{
			"ryzen", "radeon", "epyc", "threadripper", "zen", "rdna", "x3d", "chipset",
			"cpu", "gpu", "processor", "driver", "bios", "firmware", "benchmark",
			"overclock", "thermal", "fps", "motherboard", "adrenalin", "fsr", "am5", "am4",
		},
		ReputationKeywords: []string{
			"reliable", "reliability", "quality", "support", "warranty", "rma", "trust",
			"reputation", "recommend", "customer service", "value",
		},
		ExclusionKeywords: []string{
			"giveaway", "meme", "for sale", "[wts]", "selling my", "shitpost",
		},
		RelevantFlairs: []string{
			"Review", "Discussion", "Benchmark", "Tech Support", "News", "Video", "Battlestation",
		},
		MinPostUpvotes:           10,
		MinCommentUpvotes:        3,
		SentimentThreshold:       0.25,
		PositiveEmotions:         []string{"joy", "trust", "anticipation", "surprise"},
		PositiveEmotionThreshold: 0.3,
		EscalationSampleSize:     15,
		MinOpinionatedComments:   3,
		MinPositiveComments:      2,
		MinRetainedComments:      2,
	}
}

// Lowered returns the set with every entry trimmed and lower-cased.
func Lowered(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
