package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	exampleConfigName  = defaultConfigFile + ".example"
	exampleSecretsName = defaultSecretsFile + ".example"
)

var secretsConfigExample = []byte(`# cassini secrets.toml
# Keep this file readable only by the miner user (0600).

# Bot token used for Discord submission notices.
discord_token = ""
`)

func exampleConfigHeader() []byte {
	return []byte(`# cassini.toml.example
# Copy to cassini.toml and edit. Values shown are the built-in defaults;
# command-line flags override them.
#
`)
}

func durationSeconds(d time.Duration) *int {
	s := int(d / time.Second)
	return &s
}

// exampleFileConfig renders cfg back into the on-disk layout.
func exampleFileConfig(cfg Config) baseFileConfig {
	workers := cfg.Workers
	resultDepth := cfg.ResultQueueDepth
	broadcastDepth := cfg.BroadcastDepth
	notifyRejects := cfg.DiscordNotifyRejects
	return baseFileConfig{
		Pool: poolFileConfig{
			URL:                     cfg.PoolURL,
			Address:                 cfg.Address,
			HTTPTimeoutSeconds:      durationSeconds(cfg.HTTPTimeout),
			TemplateIntervalSeconds: durationSeconds(cfg.TemplateInterval),
			ZMQTemplateAddr:         cfg.ZMQTemplateAddr,
			ZMQTemplateTopic:        cfg.ZMQTemplateTopic,
			MinerName:               cfg.MinerName,
		},
		Mining: miningFileConfig{
			Workers:                &workers,
			Hasher:                 cfg.Hasher,
			MonitorIntervalSeconds: durationSeconds(cfg.MonitorInterval),
			ResultQueueDepth:       &resultDepth,
			BroadcastDepth:         &broadcastDepth,
		},
		Logging: loggingFileConfig{
			Level: cfg.LogLevel,
			File:  cfg.LogFile,
		},
		Journal: journalFileConfig{Path: cfg.JournalPath},
		Notify: notifyFileConfig{
			DiscordChannelID:     cfg.DiscordChannelID,
			DiscordNotifyRejects: &notifyRejects,
		},
	}
}

func exampleConfigBytes() ([]byte, error) {
	cfg := defaultConfig()
	cfg.PoolURL = "http://127.0.0.1:8080"
	cfg.Address = "your-payout-address"
	data, err := toml.Marshal(exampleFileConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("render example config: %w", err)
	}
	return append(exampleConfigHeader(), data...), nil
}

// writeExampleFiles drops commented example config and secrets files into
// dir, replacing older copies.
func writeExampleFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create examples directory: %w", err)
	}
	data, err := exampleConfigBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, exampleConfigName), data, 0o644); err != nil {
		return fmt.Errorf("write example config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, exampleSecretsName), secretsConfigExample, 0o600); err != nil {
		return fmt.Errorf("write example secrets: %w", err)
	}
	return nil
}
