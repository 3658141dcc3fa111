package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. PUSHQUEUE_TRANSPORT_DRIVER.
const EnvPrefix = "PUSHQUEUE"

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadOptions names the optional config and dotenv files.
type LoadOptions struct {
	// Path is an optional JSON/YAML config file.
	Path string
	// EnvFile is an optional dotenv file. Variables already set in the
	// environment win over the file.
	EnvFile string
}

// Load resolves the configuration from defaults, file and environment, and
// validates the result.
func Load(opt LoadOptions) (*Config, error) {
	cfg := Default()

	if p := strings.TrimSpace(opt.Path); p != "" {
		if err := decodeFile(p, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", p, err)
		}
	}

	if p := strings.TrimSpace(opt.EnvFile); p != "" {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("env file %s: %w", p, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile overlays the file onto cfg; keys absent from the file keep
// their current value.
func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	jb, err := toJSON(path, b)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("trailing data")
		}
		return err
	}
	return nil
}

// Validate checks field constraints and duration syntax.
func (c *Config) Validate() error {
	c.Transport.Driver = strings.ToLower(strings.TrimSpace(c.Transport.Driver))
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Durations(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel is the effective log level; Debug always wins.
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		return "info"
	}
	return c.Logging.Level
}
