package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"depthmirror/internal/logger"
)

// StreamProfile describes the resolution and framerate requested for a single
// camera stream. It is a plain value; a zero field is invalid.
type StreamProfile struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	FPS    int `json:"fps" yaml:"fps"`
}

// Validate reports whether every field of the profile is positive.
func (p StreamProfile) Validate() error {
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return fmt.Errorf("invalid stream profile %dx%d@%d: all fields must be positive", p.Width, p.Height, p.FPS)
	}
	return nil
}

// Capture holds the per-session capture configuration. PlaybackPath empty
// means live hardware; otherwise frames are replayed from the recording at
// that path in a loop.
type Capture struct {
	ColorStream  StreamProfile `json:"color_stream" yaml:"color_stream"`
	DepthStream  StreamProfile `json:"depth_stream" yaml:"depth_stream"`
	AlignToColor bool          `json:"align_to_color" yaml:"align_to_color"`
	PlaybackPath string        `json:"playback_path,omitempty" yaml:"playback_path,omitempty"`
}

// Validate checks both stream profiles.
func (c Capture) Validate() error {
	if err := c.ColorStream.Validate(); err != nil {
		return fmt.Errorf("color stream: %w", err)
	}
	if err := c.DepthStream.Validate(); err != nil {
		return fmt.Errorf("depth stream: %w", err)
	}
	return nil
}

// RGBA is a yaml/json friendly color value.
type RGBA struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
	A uint8 `json:"a" yaml:"a"`
}

// Overlay holds skeleton drawing style.
type Overlay struct {
	SkeletonColor RGBA `json:"skeleton_color" yaml:"skeleton_color"`
	JointColor    RGBA `json:"joint_color" yaml:"joint_color"`
	LineThickness int  `json:"line_thickness" yaml:"line_thickness"`
	JointRadius   int  `json:"joint_radius" yaml:"joint_radius"`
}

// Config is the application configuration.
type Config struct {
	Capture       Capture `json:"capture" yaml:"capture"`
	Overlay       Overlay `json:"overlay" yaml:"overlay"`
	ModelPath     string  `json:"model_path" yaml:"model_path"`
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
	ServerPort    int     `json:"server_port" yaml:"server_port"`
	LogLevel      string  `json:"log_level" yaml:"log_level"`
}

// Default returns the default configuration: 848x480@30 color and depth,
// depth aligned onto the color viewpoint.
func Default() *Config {
	return &Config{
		Capture: Capture{
			ColorStream:  StreamProfile{Width: 848, Height: 480, FPS: 30},
			DepthStream:  StreamProfile{Width: 848, Height: 480, FPS: 30},
			AlignToColor: true,
		},
		Overlay: Overlay{
			SkeletonColor: RGBA{G: 255, A: 255},
			JointColor:    RGBA{R: 255, G: 128, A: 255},
			LineThickness: 2,
			JointRadius:   4,
		},
		ModelPath:     "",
		MinConfidence: 0.5,
		ServerPort:    8080,
		LogLevel:      "info",
	}
}

// Manager handles loading and persisting the configuration file.
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a configuration manager backed by the given file path.
// An empty path falls back to $HOME/.config/depthmirror/config.yaml. A
// missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		actualConfigPath = filepath.Join(homeDir, ".config", "depthmirror", "config.yaml")
	}

	m := &Manager{configPath: actualConfigPath}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Default()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Capture.Validate(); err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Default()
	}
	cfg := *m.config
	return &cfg
}

// Update replaces the configuration and persists it.
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Capture.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// Save writes the current configuration to disk, creating the directory if
// needed.
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Default()
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// GetConfigPath returns the path to the config file.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
