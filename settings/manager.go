package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. REELS_TYPOGRAPHY_FONT_SIZE.
const EnvPrefix = "REELS"

// Manager loads settings and hot-reloads them when the config file changes.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	settings  Settings
	callbacks []func(Settings)
	logger    *slog.Logger
}

// NewManager loads settings from defaults, cfgFile and the environment.
// With an empty cfgFile, config.yaml is searched for in the working
// directory and $HOME/.reels; a missing file is not an error.
func NewManager(cfgFile string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{v: viper.New(), logger: logger}

	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	s, err := m.load()
	if err != nil {
		return nil, err
	}
	m.settings = s
	return m, nil
}

func (m *Manager) initViper(cfgFile string) error {
	d := Default()
	v := m.v
	v.SetDefault("typography.font_size", d.Typography.FontSize)
	v.SetDefault("typography.line_height", d.Typography.LineHeight)
	v.SetDefault("typography.font_sizes", d.Typography.FontSizes)
	v.SetDefault("viewport.width", d.Viewport.Width)
	v.SetDefault("viewport.height", d.Viewport.Height)
	v.SetDefault("viewport.header_height", d.Viewport.HeaderHeight)
	v.SetDefault("viewport.max_content_width", d.Viewport.MaxContentWidth)
	v.SetDefault("viewport.gutter", d.Viewport.Gutter)
	v.SetDefault("content.min_text", d.Content.MinText)
	v.SetDefault("content.min_dense", d.Content.MinDense)
	v.SetDefault("content.min_element_text", d.Content.MinElementText)
	v.SetDefault("content.skip_license_pages", d.Content.SkipLicensePages)
	v.SetDefault("navigation.settle_delay", d.Navigation.SettleDelay)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reels")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("settings: read config file: %w", err)
		}
	}
	return nil
}

func (m *Manager) load() (Settings, error) {
	var s Settings
	if err := m.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("settings: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Clone()
}

// ConfigFile returns the file the settings were read from, if any.
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

// OnChange registers a callback for reloaded settings.
func (m *Manager) OnChange(fn func(Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// WatchConfig reloads the config file on change. Invalid edits are logged
// and the previous settings stay in effect.
func (m *Manager) WatchConfig() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		m.reload(e.Name)
	})
	m.v.WatchConfig()
}

func (m *Manager) reload(name string) {
	s, err := m.load()
	if err != nil {
		m.logger.Warn("ignoring settings change", "file", name, "error", err)
		return
	}

	m.mu.Lock()
	m.settings = s
	callbacks := make([]func(Settings), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	m.logger.Info("settings reloaded", "file", name)
	for _, fn := range callbacks {
		fn(s.Clone())
	}
}
