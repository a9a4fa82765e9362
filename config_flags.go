package main

import (
	flags "github.com/jessevdk/go-flags"
)

type cliOptions struct {
	Pool        string `short:"p" long:"pool" description:"Pool API URL (used for fetching templates and submitting work)"`
	Address     string `short:"a" long:"address" description:"Wallet address to be mined into"`
	Cores       int    `short:"c" long:"cores" description:"Number of hashing workers (default 1)"`
	ConfigFile  string `long:"config" description:"Path to the TOML config file (default cassini.toml if present)"`
	SecretsFile string `long:"secrets" description:"Path to secrets.toml (default next to the config file)"`
	Hasher      string `long:"hasher" description:"Hash backend: blake3, blake256 or sha256"`
	LogLevel    string `long:"loglevel" description:"Log level: debug, info, warn or error"`
	LogFile     string `long:"logfile" description:"Also write logs to this file, rotated by size"`
	Quiet       bool   `short:"q" long:"quiet" description:"Do not log to stdout"`
	ShowVersion bool   `short:"V" long:"version" description:"Print version and exit"`

	WriteExamples string `long:"write-examples" value-name:"DIR" description:"Write example config and secrets files to DIR and exit"`
}

// parseCommandLine parses args (without the program name).
func parseCommandLine(args []string) (cliOptions, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = minerSoftwareName
	rest, err := parser.ParseArgs(args)
	if err != nil {
		return opts, err
	}
	if len(rest) > 0 {
		return opts, &flags.Error{Type: flags.ErrUnknownCommand, Message: "unexpected arguments: " + rest[0]}
	}
	return opts, nil
}
