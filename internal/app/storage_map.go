package app

import (
	"errors"
	"strings"

	"pushqueue/internal/config"
	"pushqueue/internal/storage"
)

func mapStorageConfig(cfg *config.Config, queueFile string) (storage.Config, error) {
	path := strings.TrimSpace(queueFile)
	if path == "" {
		return storage.Config{}, errors.New("queue file is required")
	}
	d, err := cfg.Durations()
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Path: path, BusyTimeout: d.BusyTimeout, OpTimeout: d.OpTimeout}, nil
}
