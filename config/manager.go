package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Manager owns the on-disk JSON config. Long-running commands such as
// "monitor --watch" use Watch to pick up strategy edits without a restart.
type Manager struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	cfg      Config
	onChange func(Config)
	watching bool
}

type managerOptions struct {
	configPath    string
	initialConfig *Config
	debounce      time.Duration
	logger        *zap.Logger
}

type ManagerOption func(*managerOptions)

// NewManager loads the config file, creating it from the initial config
// (or the defaults rooted at the file's directory) when it does not exist.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{debounce: 300 * time.Millisecond}
	for _, opt := range opts {
		opt(&options)
	}

	path := options.configPath
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := loadOrCreateConfig(path, options.initialConfig)
	if err != nil {
		return nil, err
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		path:     path,
		debounce: options.debounce,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Strategy returns the current strategy thresholds.
func (m *Manager) Strategy() StrategyConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Strategy
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) UpdateFromJSON(jsonStr string) error {
	var cfg Config
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

// Update validates, persists and applies cfg. An invalid config leaves both
// the file and the in-memory copy untouched.
func (m *Manager) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return nil
	}
	if err := writeConfigFile(m.path, cfg); err != nil {
		return err
	}
	m.apply(cfg)
	return nil
}

// UpdateStrategy applies fn to a copy of the strategy and saves the result.
func (m *Manager) UpdateStrategy(fn func(*StrategyConfig) error) error {
	cfg := m.Get()
	if err := fn(&cfg.Strategy); err != nil {
		return err
	}
	return m.Update(cfg)
}

// Watch calls onChange with every valid config written to the file until
// ctx is done. Edits that fail validation are logged and ignored. Writes
// made through Update do not trigger onChange a second time.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watching {
		m.mu.Unlock()
		return nil
	}
	m.watching = true
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.stopWatching()
		return fmt.Errorf("create config watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		m.stopWatching()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watchLoop(ctx, watcher)
	return nil
}

func (m *Manager) stopWatching() {
	m.mu.Lock()
	m.watching = false
	m.mu.Unlock()
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer m.stopWatching()
	defer watcher.Close()

	timer := time.NewTimer(m.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	target := filepath.Clean(m.path)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != target || evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(m.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("config watcher error", zap.Error(err))
		case <-timer.C:
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	var cfg Config
	err := loadConfigFromFile(m.path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		// Mid-rename; the Create event that follows triggers another reload.
		return
	}
	if err != nil {
		m.logger.Error("config reload failed", zap.Error(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		m.logger.Error("config rejected, keeping previous", zap.String("path", m.path), zap.Error(err))
		return
	}

	previous := m.Get()
	if reflect.DeepEqual(previous, cfg) {
		return
	}
	m.logger.Info("config reloaded",
		zap.String("path", m.path),
		zap.Strings("strategy_changes", strategyChanges(previous.Strategy, cfg.Strategy)),
	)
	m.apply(cfg)
}

func (m *Manager) apply(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(cfg)
	}
}

// strategyChanges lists "key: old -> new" for every strategy knob that differs.
func strategyChanges(before, after StrategyConfig) []string {
	a, b := before.fields(), after.fields()
	var changes []string
	for _, key := range strategyKeys {
		if a[key] != b[key] {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", key, a[key], b[key]))
		}
	}
	return changes
}

func loadConfigFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Missing keys keep their defaults.
	*cfg = *DefaultConfigWithRoot(filepath.Dir(path))
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadOrCreateConfig(path string, initial *Config) (Config, error) {
	var cfg Config
	err := loadConfigFromFile(path, &cfg)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		if initial != nil {
			cfg = *initial
		} else {
			cfg = *DefaultConfigWithRoot(filepath.Dir(path))
		}
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		if err := writeConfigFile(path, cfg); err != nil {
			return Config{}, fmt.Errorf("write initial config: %w", err)
		}
		return cfg, nil
	default:
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "CortexSwing", "config.json"), nil
}

// writeConfigFile replaces path atomically so a watcher never reads a
// half-written file.
func writeConfigFile(path string, cfg Config) error {
	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "cfg-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func WithConfigDir(dir string) ManagerOption {
	return func(o *managerOptions) {
		if dir != "" {
			o.configPath = filepath.Join(dir, "config.json")
		}
	}
}

func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.configPath = path
		}
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithInitialConfig seeds the file when it does not exist yet.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) {
		o.initialConfig = cfg
	}
}

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(o *managerOptions) {
		o.logger = logger
	}
}
