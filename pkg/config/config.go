/*
Package config manages TOML config for lacuna services.
*/
package config

import (
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	lerrors "github.com/lacunae/lacuna/internal/errors"
	"github.com/lacunae/lacuna/internal/utils"
)

// Config holds the entire config structure
type Config struct {
	Model  ModelConfig  `toml:"model"`
	Search SearchConfig `toml:"search"`
	Server ServerConfig `toml:"server"`
	CLI    CliConfig    `toml:"cli"`
}

// ModelConfig holds language model options.
type ModelConfig struct {
	Order     int     `toml:"order"`
	BOS       string  `toml:"bos"`
	EOS       string  `toml:"eos"`
	PadLeft   bool    `toml:"pad_left"`
	PadRight  bool    `toml:"pad_right"`
	Mask      string  `toml:"mask"`
	Discount  float64 `toml:"discount"`
	ChunkSize int     `toml:"chunk_size"`
}

// SearchConfig holds beam search defaults and limits.
type SearchConfig struct {
	BeamWidth    int `toml:"beam_width"`
	TopK         int `toml:"top_k"`
	MaxBeamWidth int `toml:"max_beam_width"`
	MaxQueryLen  int `toml:"max_query_len"`
	CacheSize    int `toml:"cache_size"`
}

// Resolve fills unset (zero) request values with the configured defaults.
// topK never defaults above the beam width. exceeded reports a beam wider than MaxBeamWidth.
func (s SearchConfig) Resolve(beamWidth, topK int) (beam, k int, exceeded bool) {
	if beamWidth == 0 {
		beamWidth = s.BeamWidth
	}
	if topK == 0 {
		topK = min(s.TopK, beamWidth)
	}
	return beamWidth, topK, s.MaxBeamWidth > 0 && beamWidth > s.MaxBeamWidth
}

// ServerConfig has transport related options.
type ServerConfig struct {
	HTTPAddr     string `toml:"http_addr"`
	MaxBodyBytes int    `toml:"max_body_bytes"`
	MaxGenerate  int    `toml:"max_generate"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit"`
	DefaultBeam  int `toml:"default_beam"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Model: DefaultModelConfig(),
		Search: SearchConfig{
			BeamWidth:    10,
			TopK:         5,
			MaxBeamWidth: 256,
			MaxQueryLen:  512,
			CacheSize:    256,
		},
		Server: ServerConfig{
			HTTPAddr:     ":8080",
			MaxBodyBytes: 1 << 20,
			MaxGenerate:  4096,
		},
		CLI: CliConfig{
			DefaultLimit: 5,
			DefaultBeam:  10,
		},
	}
}

// DefaultModelConfig returns the model options used when none are configured.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Order:     4,
		BOS:       "␂",
		EOS:       "␃",
		PadLeft:   true,
		PadRight:  true,
		Mask:      "?",
		Discount:  0.1,
		ChunkSize: 1000,
	}
}

// Validate rejects option combinations the model cannot work with.
func (m ModelConfig) Validate() error {
	if m.Order < 1 {
		return lerrors.NewModelConfigError("order", "must be at least 1")
	}
	if m.BOS == "" || m.EOS == "" {
		return lerrors.NewModelConfigError("bos/eos", "sentinels must not be empty")
	}
	if m.BOS == m.EOS {
		return lerrors.NewModelConfigError("bos/eos", "sentinels must differ")
	}
	if utf8.RuneCountInString(m.Mask) != 1 {
		return lerrors.NewModelConfigError("mask", "must be exactly one character")
	}
	if m.Mask == m.BOS || m.Mask == m.EOS {
		return lerrors.NewModelConfigError("mask", "must differ from the sentinels")
	}
	if m.Discount <= 0 || m.Discount >= 1 {
		return lerrors.NewModelConfigError("discount", "must be in (0, 1)")
	}
	return nil
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/lacuna
// 2. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "lacuna")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/lacuna/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every section that still decodes and defaults the rest.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "model"); ok {
		extractModelConfig(section, &config.Model)
	}
	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractModelConfig(data map[string]any, model *ModelConfig) {
	if val, ok := utils.ExtractInt64(data, "order"); ok {
		model.Order = val
	}
	if val, ok := utils.ExtractString(data, "bos"); ok {
		model.BOS = val
	}
	if val, ok := utils.ExtractString(data, "eos"); ok {
		model.EOS = val
	}
	if val, ok := utils.ExtractBool(data, "pad_left"); ok {
		model.PadLeft = val
	}
	if val, ok := utils.ExtractBool(data, "pad_right"); ok {
		model.PadRight = val
	}
	if val, ok := utils.ExtractString(data, "mask"); ok {
		model.Mask = val
	}
	if val, ok := utils.ExtractFloat(data, "discount"); ok {
		model.Discount = val
	}
	if val, ok := utils.ExtractInt64(data, "chunk_size"); ok {
		model.ChunkSize = val
	}
}

func extractSearchConfig(data map[string]any, search *SearchConfig) {
	if val, ok := utils.ExtractInt64(data, "beam_width"); ok {
		search.BeamWidth = val
	}
	if val, ok := utils.ExtractInt64(data, "top_k"); ok {
		search.TopK = val
	}
	if val, ok := utils.ExtractInt64(data, "max_beam_width"); ok {
		search.MaxBeamWidth = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query_len"); ok {
		search.MaxQueryLen = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		search.CacheSize = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "http_addr"); ok {
		server.HTTPAddr = val
	}
	if val, ok := utils.ExtractInt64(data, "max_body_bytes"); ok {
		server.MaxBodyBytes = val
	}
	if val, ok := utils.ExtractInt64(data, "max_generate"); ok {
		server.MaxGenerate = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "default_beam"); ok {
		cli.DefaultBeam = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}
