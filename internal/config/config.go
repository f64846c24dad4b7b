// Package config loads supportflow settings: built-in defaults, then an
// optional YAML file, then a .env file, then environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ritotombe/supportflow/internal/runtime"
)

const (
	// DefaultPath is read when Load gets an empty path and the file exists.
	DefaultPath = "supportflow.yaml"
	// DefaultEnvFile is loaded into the environment when present.
	DefaultEnvFile = ".env"
)

// Thread store backends.
const (
	ThreadsMemory = "memory"
	ThreadsFile   = "file"
	ThreadsRedis  = "redis"
)

// Routing strategies.
const (
	RoutingRules = "rules"
	RoutingLLM   = "llm"
)

type Config struct {
	Server   Server           `yaml:"server"`
	Log      Log              `yaml:"log"`
	Defaults runtime.Defaults `yaml:"defaults"`
	LLM      LLM              `yaml:"llm"`
	Intake   Intake           `yaml:"intake"`
	Storage  Storage          `yaml:"storage"`
	Threads  Threads          `yaml:"threads"`
	Redis    Redis            `yaml:"redis"`
	Routing  Routing          `yaml:"routing"`
	Locking  Locking          `yaml:"locking"`

	// MaxInputSize bounds a user message in bytes.
	MaxInputSize int `yaml:"max_input_size"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LLM struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	MaxTokens   int64         `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Intake struct {
	BaseURL  string        `yaml:"base_url"`
	Path     string        `yaml:"path"`
	APIToken string        `yaml:"api_token"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Storage struct {
	CustomerDB string `yaml:"customer_db"`
	TicketDB   string `yaml:"ticket_db"`
}

type Threads struct {
	Backend string        `yaml:"backend"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`

	// EncryptionKey is a base64 AES-256 key. Threads are sealed at rest when set.
	EncryptionKey string `yaml:"encryption_key"`
	// MaskPII replaces emails, card and phone numbers before threads are stored.
	MaskPII bool `yaml:"mask_pii"`
}

// Key decodes EncryptionKey. It returns nil when no key is configured.
func (t Threads) Key() ([]byte, error) {
	if t.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(t.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("threads.encryption_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("threads.encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Routing struct {
	Strategy string `yaml:"strategy"`
}

// Locking enables the redis lock around thread turns and reservations.
type Locking struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   Server{Addr: ":8080"},
		Log:      Log{Level: "info", Format: "text"},
		Defaults: runtime.DefaultDefaults(),
		LLM: LLM{
			Model:       "gpt-3.5-turbo",
			MaxTokens:   1000,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Intake: Intake{
			Path:    "/api/escalations",
			Timeout: 15 * time.Second,
		},
		Storage: Storage{
			CustomerDB: "data/customer.db",
			TicketDB:   "data/tickets.db",
		},
		Threads: Threads{Backend: ThreadsMemory, Dir: ".supportflow/threads"},
		Redis:   Redis{Addr: "localhost:6379"},
		Routing: Routing{Strategy: RoutingRules},

		MaxInputSize: 4096,
	}
}

// Load builds the configuration. An empty path reads DefaultPath if present;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	return load(path, DefaultEnvFile, os.LookupEnv)
}

func load(path, envFile string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			// Variables already set in the environment win.
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("OPENAI_API_KEY", &c.LLM.APIKey)
	str("OPENAI_BASE_URL", &c.LLM.BaseURL)
	str("OPENAI_MODEL", &c.LLM.Model)
	str("VOCAREUM_BASE_URL", &c.Intake.BaseURL)
	str("VOCAREUM_API_TOKEN", &c.Intake.APIToken)
	str("VOCAREUM_API_KEY", &c.Intake.APIKey)
	str("VOCAREUM_ESCALATION_PATH", &c.Intake.Path)
	str("SUPPORTFLOW_REDIS_ADDR", &c.Redis.Addr)
	str("SUPPORTFLOW_LOG_LEVEL", &c.Log.Level)
	str("SUPPORTFLOW_THREAD_KEY", &c.Threads.EncryptionKey)

	if v, ok := lookup("SUPPORTFLOW_MAX_INPUT_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid SUPPORTFLOW_MAX_INPUT_SIZE %q", v)
		}
		c.MaxInputSize = n
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if mc := c.Defaults.MinConfidence; mc < 0 || mc > 1 {
		errs = append(errs, fmt.Errorf("defaults.min_confidence must be within [0,1], got %v", mc))
	}
	switch c.Threads.Backend {
	case ThreadsMemory, ThreadsFile, ThreadsRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown threads.backend %q", c.Threads.Backend))
	}
	switch c.Routing.Strategy {
	case RoutingRules, RoutingLLM:
	default:
		errs = append(errs, fmt.Errorf("unknown routing.strategy %q", c.Routing.Strategy))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if _, err := c.Threads.Key(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxInputSize <= 0 {
		errs = append(errs, errors.New("max_input_size must be positive"))
	}
	return errors.Join(errs...)
}
