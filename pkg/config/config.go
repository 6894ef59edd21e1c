package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/fleetd/pkg/log"
)

// Config is fleetd's file-based configuration. Everything here has a
// sensible default; the file only needs to override what differs from it.
type Config struct {
	NodeListenAddr   string    `yaml:"node_listen_addr"`
	PublicListenAddr string    `yaml:"public_listen_addr"`
	MetricsAddr      string    `yaml:"metrics_addr"`
	HealthAddr       string    `yaml:"health_addr"`
	LogLevel         log.Level `yaml:"log_level"`
	LogJSON          bool      `yaml:"log_json"`
}

// Default returns the configuration fleetd starts with before the config
// file, if any, is applied. Environment variables are not consulted.
func Default() Config {
	return Config{
		NodeListenAddr:   ":1999",
		PublicListenAddr: ":1998",
		MetricsAddr:      ":9090",
		HealthAddr:       ":8080",
		LogLevel:         log.InfoLevel,
		LogJSON:          true,
	}
}

// Load reads path as YAML over top of Default. A missing file is not an
// error: fleetd runs on defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Watcher hot-reloads the log level from a config file's on-disk changes,
// without restarting any listener. Other fields are read once at startup;
// changing the listen addresses still requires a restart.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	mu        sync.Mutex
	current   Config
	done      chan struct{}
}

// NewWatcher creates a Watcher for path, seeded with the already-loaded
// cfg.
func NewWatcher(path string, cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		path:      path,
		fsWatcher: fsw,
		current:   cfg,
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the config file's directory for changes.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	go w.loop()
	return nil
}

// Stop terminates the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Watcher) loop() {
	logger := log.WithComponent("config")
	var timer *time.Timer
	const debounce = 200 * time.Millisecond

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}

		case <-timerC:
			w.reload(logger)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher error")

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload(logger zerolog.Logger) {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to reload config, keeping previous values")
		return
	}

	w.mu.Lock()
	previousLevel := w.current.LogLevel
	w.current = cfg
	w.mu.Unlock()

	if cfg.LogLevel != previousLevel {
		log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
		logger.Info().Str("log_level", string(cfg.LogLevel)).Msg("log level reloaded")
	}
}
