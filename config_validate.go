package main

import (
	"fmt"
	"net/url"
	"strings"
)

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.PoolURL) == "" {
		return fmt.Errorf("pool url is required (-p/--pool or [pool].url)")
	}
	if parsed, err := url.Parse(cfg.PoolURL); err != nil {
		return fmt.Errorf("pool url parse error: %w", err)
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		if parsed.Scheme == "" {
			return fmt.Errorf("pool url %q missing protocol scheme (http/https)", cfg.PoolURL)
		}
		return fmt.Errorf("pool url %q must use http or https scheme", cfg.PoolURL)
	} else if parsed.Host == "" {
		return fmt.Errorf("pool url %q has no host", cfg.PoolURL)
	}
	if strings.TrimSpace(cfg.Address) == "" {
		return fmt.Errorf("address is required (-a/--address or [pool].address)")
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.Workers > maxNumWorkers {
		return fmt.Errorf("workers must be <= %d, got %d", maxNumWorkers, cfg.Workers)
	}
	if _, err := newDigestHasher(cfg.Hasher); err != nil {
		return err
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout_seconds must be > 0, got %s", cfg.HTTPTimeout)
	}
	if cfg.TemplateInterval <= 0 {
		return fmt.Errorf("template_interval_seconds must be > 0, got %s", cfg.TemplateInterval)
	}
	if cfg.MonitorInterval <= 0 {
		return fmt.Errorf("monitor_interval_seconds must be > 0, got %s", cfg.MonitorInterval)
	}
	if cfg.ResultQueueDepth <= 0 {
		return fmt.Errorf("result_queue_depth must be > 0, got %d", cfg.ResultQueueDepth)
	}
	if cfg.BroadcastDepth <= 0 {
		return fmt.Errorf("broadcast_depth must be > 0, got %d", cfg.BroadcastDepth)
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.ZMQTemplateAddr != "" && !strings.Contains(cfg.ZMQTemplateAddr, "://") {
		return fmt.Errorf("zmq_template_addr %q must include a transport (e.g. tcp://)", cfg.ZMQTemplateAddr)
	}
	if cfg.DiscordChannelID != "" && strings.TrimSpace(cfg.DiscordBotToken) == "" {
		return fmt.Errorf("discord_channel_id is set but discord_token is missing from secrets.toml")
	}
	return nil
}
