package main

type poolFileConfig struct {
	URL                     string `toml:"url"`
	Address                 string `toml:"address"`
	HTTPTimeoutSeconds      *int   `toml:"http_timeout_seconds"`
	TemplateIntervalSeconds *int   `toml:"template_interval_seconds"`
	ZMQTemplateAddr         string `toml:"zmq_template_addr"`
	ZMQTemplateTopic        string `toml:"zmq_template_topic"`
	MinerName               string `toml:"miner_name"`
}

type miningFileConfig struct {
	Workers                *int   `toml:"workers"`
	Hasher                 string `toml:"hasher"`
	MonitorIntervalSeconds *int   `toml:"monitor_interval_seconds"`
	ResultQueueDepth       *int   `toml:"result_queue_depth"`
	BroadcastDepth         *int   `toml:"broadcast_depth"`
}

type loggingFileConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type journalFileConfig struct {
	Path string `toml:"path"`
}

type notifyFileConfig struct {
	DiscordChannelID     string `toml:"discord_channel_id"`
	DiscordNotifyRejects *bool  `toml:"discord_notify_rejects"`
}

type baseFileConfig struct {
	Pool    poolFileConfig    `toml:"pool"`
	Mining  miningFileConfig  `toml:"mining"`
	Logging loggingFileConfig `toml:"logging"`
	Journal journalFileConfig `toml:"journal"`
	Notify  notifyFileConfig  `toml:"notify"`
}

type secretsConfig struct {
	DiscordToken string `toml:"discord_token"`
}
