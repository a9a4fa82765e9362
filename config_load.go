package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
)

// loadConfig merges defaults, the optional config and secrets files, and
// the command line, in that order.
func loadConfig(opts cliOptions) (Config, error) {
	cfg := defaultConfig()

	configPath := strings.TrimSpace(opts.ConfigFile)
	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigFile
	}
	fc, ok, err := loadTOMLFile[baseFileConfig](configPath)
	if err != nil {
		return cfg, err
	}
	if !ok && explicit {
		return cfg, fmt.Errorf("config file %s does not exist", configPath)
	}
	if ok {
		applyBaseConfig(&cfg, *fc)
	}

	secretsPath := strings.TrimSpace(opts.SecretsFile)
	if secretsPath == "" {
		secretsPath = filepath.Join(filepath.Dir(configPath), defaultSecretsFile)
	}
	ensureSecretFilePermissions(secretsPath)
	sc, ok, err := loadTOMLFile[secretsConfig](secretsPath)
	if err != nil {
		return cfg, err
	}
	if ok {
		cfg.DiscordBotToken = strings.TrimSpace(sc.DiscordToken)
	}

	applyCommandLine(&cfg, opts)

	cfg.PoolURL = strings.TrimRight(strings.TrimSpace(cfg.PoolURL), "/")
	cfg.Address = strings.TrimSpace(cfg.Address)
	if strings.TrimSpace(cfg.MinerName) == "" {
		cfg.MinerName = generateMinerName()
	}
	return cfg, nil
}

func loadTOMLFile[T any](path string) (*T, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg T
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, true, nil
}

func ensureSecretFilePermissions(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("secrets file stat failed", "path", path, "error", err)
		}
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	if info.Mode().Perm()&0o077 == 0 {
		return
	}
	if err := os.Chmod(path, 0o600); err != nil {
		logger.Warn("secrets file chmod failed", "path", path, "error", err)
		return
	}
	logger.Warn("secrets file permissions tightened", "path", path, "mode", "0600")
}

func secondsOrZero(v *int) time.Duration {
	if v == nil {
		return 0
	}
	return time.Duration(*v) * time.Second
}

func applyBaseConfig(cfg *Config, fc baseFileConfig) {
	if fc.Pool.URL != "" {
		cfg.PoolURL = fc.Pool.URL
	}
	if fc.Pool.Address != "" {
		cfg.Address = fc.Pool.Address
	}
	if fc.Pool.HTTPTimeoutSeconds != nil {
		cfg.HTTPTimeout = secondsOrZero(fc.Pool.HTTPTimeoutSeconds)
	}
	if fc.Pool.TemplateIntervalSeconds != nil {
		cfg.TemplateInterval = secondsOrZero(fc.Pool.TemplateIntervalSeconds)
	}
	if fc.Pool.ZMQTemplateAddr != "" {
		cfg.ZMQTemplateAddr = strings.TrimSpace(fc.Pool.ZMQTemplateAddr)
	}
	if fc.Pool.ZMQTemplateTopic != "" {
		cfg.ZMQTemplateTopic = fc.Pool.ZMQTemplateTopic
	}
	if fc.Pool.MinerName != "" {
		cfg.MinerName = strings.TrimSpace(fc.Pool.MinerName)
	}

	if fc.Mining.Workers != nil {
		cfg.Workers = *fc.Mining.Workers
	}
	if fc.Mining.Hasher != "" {
		cfg.Hasher = fc.Mining.Hasher
	}
	if fc.Mining.MonitorIntervalSeconds != nil {
		cfg.MonitorInterval = secondsOrZero(fc.Mining.MonitorIntervalSeconds)
	}
	if fc.Mining.ResultQueueDepth != nil {
		cfg.ResultQueueDepth = *fc.Mining.ResultQueueDepth
	}
	if fc.Mining.BroadcastDepth != nil {
		cfg.BroadcastDepth = *fc.Mining.BroadcastDepth
	}

	if fc.Logging.Level != "" {
		cfg.LogLevel = fc.Logging.Level
	}
	if fc.Logging.File != "" {
		cfg.LogFile = fc.Logging.File
	}

	if fc.Journal.Path != "" {
		cfg.JournalPath = strings.TrimSpace(fc.Journal.Path)
	}

	if fc.Notify.DiscordChannelID != "" {
		cfg.DiscordChannelID = strings.TrimSpace(fc.Notify.DiscordChannelID)
	}
	if fc.Notify.DiscordNotifyRejects != nil {
		cfg.DiscordNotifyRejects = *fc.Notify.DiscordNotifyRejects
	}
}

func applyCommandLine(cfg *Config, opts cliOptions) {
	if opts.Pool != "" {
		cfg.PoolURL = opts.Pool
	}
	if opts.Address != "" {
		cfg.Address = opts.Address
	}
	if opts.Cores != 0 {
		cfg.Workers = opts.Cores
	}
	if opts.Hasher != "" {
		cfg.Hasher = opts.Hasher
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if opts.Quiet {
		cfg.Quiet = true
	}
}
