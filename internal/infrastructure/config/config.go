package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"webagent/internal/application/port/output"
)

var _ output.ConfigPort = (*Config)(nil)

var ErrMissingKey = errors.New("missing config key")

const (
	KeyAPIKey                 = "OPENROUTER_API_KEY"
	KeyModel                  = "OPENROUTER_MODEL_NAME"
	KeyBaseURL                = "OPENROUTER_BASE_URL"
	KeyHeadless               = "BROWSER_HEADLESS"
	KeyBrowserTimeout         = "BROWSER_TIMEOUT"
	KeyLogLevel               = "LOG_LEVEL"
	KeyLogDir                 = "LOG_DIR"
	KeyMaxSteps               = "MAX_STEPS"
	KeyMaxConsecutiveFailures = "MAX_CONSECUTIVE_FAILURES"
	KeyMaxStagnantSteps       = "MAX_STAGNANT_STEPS"
	KeyDuplicateWindow        = "DUPLICATE_WINDOW"
	KeyBudgetWarningRatio     = "BUDGET_WARNING_RATIO"
	KeyImplicitSuccess        = "IMPLICIT_SUCCESS"
	KeyScreenshotOnFailure    = "SCREENSHOT_ON_FAILURE"
)

type Options struct {
	// Dir is searched for .env, .env.<APP_ENV> and agent.yaml.
	Dir string
	// AppEnv overrides APP_ENV.
	AppEnv string
}

// Config is a viper instance seeded with defaults, an optional agent.yaml and
// the process environment, with dotenv files loaded into the environment first.
type Config struct {
	v *viper.Viper
}

func Load(opts Options) (*Config, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	appEnv := opts.AppEnv
	if appEnv == "" {
		appEnv = os.Getenv("APP_ENV")
	}
	if appEnv == "" {
		appEnv = "dev"
	}

	// .env holds secrets, .env.<env> may override it. Both are optional.
	_ = godotenv.Load(filepath.Join(opts.Dir, ".env"))
	_ = godotenv.Overload(filepath.Join(opts.Dir, ".env."+appEnv))

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("agent")
	v.SetConfigType("yaml")
	v.AddConfigPath(opts.Dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read agent.yaml: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, "https://openrouter.ai/api/v1")
	v.SetDefault(KeyHeadless, true)
	v.SetDefault(KeyBrowserTimeout, "10s")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDir, "log")
	v.SetDefault(KeyMaxSteps, 15)
	v.SetDefault(KeyMaxConsecutiveFailures, 3)
	v.SetDefault(KeyMaxStagnantSteps, 4)
	v.SetDefault(KeyDuplicateWindow, 3)
	v.SetDefault(KeyBudgetWarningRatio, 0.75)
	v.SetDefault(KeyImplicitSuccess, true)
	v.SetDefault(KeyScreenshotOnFailure, false)
}

func (c *Config) Get(key string) string {
	return c.v.GetString(key)
}

// MustGet panics when the key is unset. Use Require where an error is wanted.
func (c *Config) MustGet(key string) string {
	val, err := c.Require(key)
	if err != nil {
		panic(err)
	}
	return val
}

func (c *Config) Require(key string) (string, error) {
	val := c.v.GetString(key)
	if val == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return val, nil
}

func (c *Config) GetWithDefault(key, defaultValue string) string {
	if val := c.v.GetString(key); val != "" {
		return val
	}
	return defaultValue
}

func (c *Config) Bool(key string) bool              { return c.v.GetBool(key) }
func (c *Config) Int(key string) int                { return c.v.GetInt(key) }
func (c *Config) Float(key string) float64          { return c.v.GetFloat64(key) }
func (c *Config) Duration(key string) time.Duration { return c.v.GetDuration(key) }

// Set overrides a key, e.g. from a command-line flag.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}
