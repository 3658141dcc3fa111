package config

import (
	"fmt"
	"strings"
	"time"
)

// Durations holds the parsed duration fields of a Config.
type Durations struct {
	BusyTimeout      time.Duration
	OpTimeout        time.Duration
	TransportTimeout time.Duration
}

// Durations parses every duration field. Zero means "use the component default".
func (c *Config) Durations() (Durations, error) {
	var (
		d   Durations
		err error
	)
	if d.BusyTimeout, err = ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return Durations{}, err
	}
	if d.OpTimeout, err = ParseDurationField("storage.op_timeout", c.Storage.OpTimeout); err != nil {
		return Durations{}, err
	}
	if d.TransportTimeout, err = ParseDurationOrDefault("transport.timeout", c.Transport.Timeout, 10*time.Second); err != nil {
		return Durations{}, err
	}
	return d, nil
}

// ParseDurationField parses raw as a Go duration, naming path in errors.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for an empty raw.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
