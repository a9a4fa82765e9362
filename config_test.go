package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	flags "github.com/jessevdk/go-flags"
)

func writeTestFile(t *testing.T, path, contents string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cassini.toml")
	writeTestFile(t, cfgPath, `
[pool]
url = "http://pool.example:8080/"
address = "file-address"
template_interval_seconds = 15
zmq_template_addr = "tcp://pool.example:28332"
miner_name = "rig-7"

[mining]
workers = 2
hasher = "sha256"
result_queue_depth = 50

[logging]
level = "debug"

[notify]
discord_channel_id = "12345"
discord_notify_rejects = true
`, 0o644)
	secretsPath := filepath.Join(dir, "secrets.toml")
	writeTestFile(t, secretsPath, `discord_token = "  bot-token  "`+"\n", 0o644)

	cfg, err := loadConfig(cliOptions{ConfigFile: cfgPath, Address: "cli-address", Cores: 3})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.PoolURL != "http://pool.example:8080" {
		t.Fatalf("PoolURL = %q", cfg.PoolURL)
	}
	if cfg.Address != "cli-address" {
		t.Fatalf("command line should override the file address, got %q", cfg.Address)
	}
	if cfg.Workers != 3 {
		t.Fatalf("Workers = %d, want 3 from -c", cfg.Workers)
	}
	if cfg.Hasher != "sha256" || cfg.ResultQueueDepth != 50 || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.TemplateInterval != 15*time.Second {
		t.Fatalf("TemplateInterval = %s", cfg.TemplateInterval)
	}
	if cfg.MonitorInterval != defaultMonitorInterval || cfg.BroadcastDepth != defaultBroadcastDepth {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.MinerName != "rig-7" {
		t.Fatalf("MinerName = %q", cfg.MinerName)
	}
	if cfg.DiscordBotToken != "bot-token" || !cfg.DiscordNotifyRejects || !cfg.discordEnabled() {
		t.Fatalf("discord settings not applied: token=%q rejects=%v", cfg.DiscordBotToken, cfg.DiscordNotifyRejects)
	}
	if strings.Contains(cfg.Effective(), "bot-token") {
		t.Fatal("Effective() leaked the discord token")
	}

	info, err := os.Stat(secretsPath)
	if err != nil {
		t.Fatalf("stat secrets: %v", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		t.Fatalf("secrets file mode = %v, want group/other bits cleared", info.Mode().Perm())
	}

	if err := validateConfig(cfg); err != nil {
		t.Fatalf("validateConfig: %v", err)
	}
}

func TestValidateConfigAcceptsFullWorkerRange(t *testing.T) {
	for _, n := range []int{1, 4, 64, maxNumWorkers} {
		cfg := validTestConfig()
		cfg.Workers = n
		if err := validateConfig(cfg); err != nil {
			t.Fatalf("validateConfig(workers=%d): %v", n, err)
		}
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := loadConfig(cliOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.toml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfigBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeTestFile(t, path, "[pool\nurl=", 0o644)
	if _, err := loadConfig(cliOptions{ConfigFile: path}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigGeneratesMinerName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cassini.toml")
	writeTestFile(t, path, "[pool]\nurl = \"http://localhost:8080\"\n", 0o644)
	cfg, err := loadConfig(cliOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(strings.Split(cfg.MinerName, "-")) < 3 {
		t.Fatalf("generated MinerName = %q, want three dash-joined words", cfg.MinerName)
	}
}

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.PoolURL = "http://localhost:8080"
	cfg.Address = "addr1"
	return cfg
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing pool", mutate: func(c *Config) { c.PoolURL = "" }, wantErr: "pool url is required"},
		{name: "no scheme", mutate: func(c *Config) { c.PoolURL = "localhost:8080" }, wantErr: "scheme"},
		{name: "ftp scheme", mutate: func(c *Config) { c.PoolURL = "ftp://pool" }, wantErr: "http or https"},
		{name: "missing address", mutate: func(c *Config) { c.Address = " " }, wantErr: "address is required"},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: "workers must be >= 1"},
		{name: "too many workers", mutate: func(c *Config) { c.Workers = maxNumWorkers + 1 }, wantErr: "workers must be <="},
		{name: "unknown hasher", mutate: func(c *Config) { c.Hasher = "md5" }, wantErr: "unknown hasher"},
		{name: "zero interval", mutate: func(c *Config) { c.TemplateInterval = 0 }, wantErr: "template_interval_seconds"},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTPTimeout = 0 }, wantErr: "http_timeout_seconds"},
		{name: "zero queue", mutate: func(c *Config) { c.ResultQueueDepth = 0 }, wantErr: "result_queue_depth"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "unknown log level"},
		{name: "zmq without transport", mutate: func(c *Config) { c.ZMQTemplateAddr = "pool:28332" }, wantErr: "transport"},
		{name: "discord channel without token", mutate: func(c *Config) { c.DiscordChannelID = "1" }, wantErr: "discord_token"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateConfig: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validateConfig error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseCommandLine(t *testing.T) {
	opts, err := parseCommandLine([]string{"-p", "http://pool:8080", "-a", "addr1", "-c", "4", "--hasher", "blake256"})
	if err != nil {
		t.Fatalf("parseCommandLine: %v", err)
	}
	if opts.Pool != "http://pool:8080" || opts.Address != "addr1" || opts.Cores != 4 || opts.Hasher != "blake256" {
		t.Fatalf("opts = %+v", opts)
	}

	if _, err := parseCommandLine([]string{"-a", "addr1", "extra"}); err == nil {
		t.Fatal("expected error for stray positional argument")
	}

	_, err = parseCommandLine([]string{"--help"})
	var ferr *flags.Error
	if !errors.As(err, &ferr) || ferr.Type != flags.ErrHelp {
		t.Fatalf("--help error = %v, want flags.ErrHelp", err)
	}

	if _, err := parseCommandLine([]string{"--cores", "many"}); err == nil {
		t.Fatal("expected error for non-numeric --cores")
	}
}

func TestGenerateMinerName(t *testing.T) {
	a := generateMinerName()
	if a == "" || strings.ContainsAny(a, " \t") {
		t.Fatalf("generateMinerName = %q", a)
	}
}

func TestExampleConfigLoadsAsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := writeExampleFiles(dir); err != nil {
		t.Fatalf("writeExampleFiles: %v", err)
	}
	cfg, err := loadConfig(cliOptions{
		ConfigFile:  filepath.Join(dir, exampleConfigName),
		SecretsFile: filepath.Join(dir, exampleSecretsName),
	})
	if err != nil {
		t.Fatalf("loadConfig(example): %v", err)
	}
	def := defaultConfig()
	if cfg.TemplateInterval != def.TemplateInterval || cfg.MonitorInterval != def.MonitorInterval || cfg.HTTPTimeout != def.HTTPTimeout {
		t.Fatalf("example intervals differ from defaults: %+v", cfg)
	}
	if cfg.Workers != def.Workers || cfg.Hasher != def.Hasher || cfg.ResultQueueDepth != def.ResultQueueDepth {
		t.Fatalf("example mining settings differ from defaults: %+v", cfg)
	}
	if cfg.PoolURL == "" || cfg.Address == "" {
		t.Fatalf("example should carry placeholder pool and address: %+v", cfg)
	}
	data, err := os.ReadFile(filepath.Join(dir, exampleConfigName))
	if err != nil {
		t.Fatalf("read example: %v", err)
	}
	if !strings.HasPrefix(string(data), "# "+exampleConfigName+"\n") {
		t.Fatalf("example header does not name the example file: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("example config does not validate: %v", err)
	}
}
