// Package config persists bridge settings between runs so the serial port
// and I2C bus only need to be named once on the command line.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eplant-data/uart2i2c/internal/i2cbus"
	"github.com/eplant-data/uart2i2c/internal/serialio"
)

// maxFileSize guards against reading an obviously wrong file.
const maxFileSize = 1 * 1024 * 1024

// Config holds the persisted bridge settings. Fields omitted from the YAML
// file keep their defaults, so partial configs are safe.
type Config struct {
	// Port is the serial device path (for example /dev/ttyUSB0 or COM3).
	Port string `yaml:"port"`

	// Serial holds the line parameters applied when opening Port.
	Serial serialio.PortOptions `yaml:"serial"`

	// I2CBus names the periph bus to open; empty selects the first one.
	I2CBus string `yaml:"i2c_bus"`

	// I2CFrequencyHz is the bus clock rate.
	I2CFrequencyHz uint32 `yaml:"i2c_frequency_hz"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		Serial:         serialio.PortOptions{BaudRate: serialio.DefaultBaudRate},
		I2CFrequencyHz: i2cbus.DefaultFrequencyHz,
	}
}

// Validate normalizes the serial options and applies defaults for any unset
// values.
func (c *Config) Validate() error {
	opts, err := c.Serial.Normalize()
	if err != nil {
		return err
	}
	c.Serial = opts

	if c.I2CFrequencyHz == 0 {
		c.I2CFrequencyHz = i2cbus.DefaultFrequencyHz
	}
	return nil
}

// DefaultPath returns the per-user location of the config file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "uart2i2c", "config.yml"), nil
}

// Load reads a Config from a YAML file. A missing file is not an error: it
// returns the defaults so first runs work without any setup.
func Load(path string) (*Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the Config to a YAML file, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
