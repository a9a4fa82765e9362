package main

import (
	"fmt"
	"strings"
	"time"
)

// Config is the effective runtime configuration after defaults, the TOML
// files and the command line have been merged.
type Config struct {
	// Coordinator.
	PoolURL          string
	Address          string
	HTTPTimeout      time.Duration
	TemplateInterval time.Duration
	ZMQTemplateAddr  string
	ZMQTemplateTopic string
	MinerName        string

	// Hashing.
	Workers          int
	Hasher           string
	MonitorInterval  time.Duration
	ResultQueueDepth int
	BroadcastDepth   int

	// Logging.
	LogLevel string
	LogFile  string
	Quiet    bool

	// Optional submission journal (sqlite), write-only.
	JournalPath string

	// Optional Discord notices.
	DiscordBotToken      string // secrets.toml only
	DiscordChannelID     string
	DiscordNotifyRejects bool
}

func defaultConfig() Config {
	return Config{
		HTTPTimeout:      defaultHTTPTimeout,
		TemplateInterval: defaultTemplateInterval,
		ZMQTemplateTopic: defaultTemplateNotifyTopic,
		Workers:          defaultWorkers,
		Hasher:           hasherBlake3,
		MonitorInterval:  defaultMonitorInterval,
		ResultQueueDepth: defaultResultQueueDepth,
		BroadcastDepth:   defaultBroadcastDepth,
		LogLevel:         defaultLogLevel,
	}
}

// Effective renders the configuration for the startup log, leaving out
// secrets.
func (c Config) Effective() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pool=%s workers=%d hasher=%s", c.PoolURL, c.Workers, c.Hasher)
	fmt.Fprintf(&b, " template_interval=%s monitor_interval=%s", c.TemplateInterval, c.MonitorInterval)
	fmt.Fprintf(&b, " result_queue=%d broadcast_depth=%d http_timeout=%s", c.ResultQueueDepth, c.BroadcastDepth, c.HTTPTimeout)
	if c.ZMQTemplateAddr != "" {
		fmt.Fprintf(&b, " zmq=%s/%s", c.ZMQTemplateAddr, c.ZMQTemplateTopic)
	}
	if c.JournalPath != "" {
		fmt.Fprintf(&b, " journal=%s", c.JournalPath)
	}
	if c.discordEnabled() {
		fmt.Fprintf(&b, " discord_channel=%s", c.DiscordChannelID)
	}
	return b.String()
}

func (c Config) discordEnabled() bool {
	return strings.TrimSpace(c.DiscordBotToken) != "" && strings.TrimSpace(c.DiscordChannelID) != ""
}
