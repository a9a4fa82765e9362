package main

import "time"

const (
	minerSoftwareName = "cassini"
	minerVersion      = "0.3.0"

	defaultWorkers     = 1
	defaultHTTPTimeout = 30 * time.Second
	defaultLogLevel    = "info"
	defaultConfigFile  = "cassini.toml"
	defaultSecretsFile = "secrets.toml"

	// shutdownGrace bounds how long main waits for workers after asking
	// them to stop.
	shutdownGrace = 5 * time.Second
)
