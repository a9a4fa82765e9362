package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	debugpkg "runtime/debug"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
)

func main() {
	// Top-level panic handler: capture unexpected panics to panic.log with a
	// stack trace before the process dies.
	defer func() {
		if r := recover(); r != nil {
			if f, err := os.OpenFile("panic.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				fmt.Fprintf(f, "[%s] panic: %v\n%s\n\n", time.Now().UTC().Format(time.RFC3339), r, debugpkg.Stack())
				_ = f.Close()
			}
			panic(r)
		}
	}()

	opts, err := parseCommandLine(os.Args[1:])
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, ferr.Message)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.ShowVersion {
		fmt.Printf("%s %s\n", minerSoftwareName, minerVersion)
		return
	}
	if opts.WriteExamples != "" {
		if err := writeExampleFiles(opts.WriteExamples); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s and %s to %s\n", exampleConfigName, exampleSecretsName, opts.WriteExamples)
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fatal("config", err)
	}
	if err := validateConfig(cfg); err != nil {
		fatal("config", err)
	}
	if err := configureLogging(cfg.LogLevel, cfg.LogFile, cfg.Quiet); err != nil {
		fatal("logging", err)
	}
	defer logger.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg); err != nil {
		fatal("miner", err)
	}
}

// run wires the pipeline together and blocks until ctx is cancelled:
// refresher -> broadcast -> workers -> result queue -> submitter, with the
// monitor sampling the hash counter on the side. releaseSignals is called
// once shutdown starts so a second signal kills the process.
func run(ctx context.Context, releaseSignals func(), cfg Config) error {
	hasher, err := newDigestHasher(cfg.Hasher)
	if err != nil {
		return err
	}

	logger.Info("starting miner", "workers", cfg.Workers, "pool", cfg.PoolURL, "name", cfg.MinerName, "version", minerVersion)
	logger.Info("effective config", "config", cfg.Effective())
	logger.Info("hash backend", "hasher", hasher.Name())
	if threads := runtime.NumCPU(); cfg.Workers > threads*2 {
		logger.Warn("more workers than hardware threads; hash rate will not scale", "workers", cfg.Workers, "cpus", threads)
	}

	stats := &submissionStats{}
	observers := []submissionObserver{stats}

	if cfg.JournalPath != "" {
		journal, err := openSubmissionJournal(cfg.JournalPath, cfg.MinerName)
		if err != nil {
			logger.Warn("open submission journal", "path", cfg.JournalPath, "error", err)
		} else {
			defer journal.Close()
			observers = append(observers, journal)
			logger.Info("submission journal enabled", "path", cfg.JournalPath)
		}
	}

	// Tasks below run under their own context so they can be torn down in
	// order once workers have been asked to stop.
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()

	notifier, err := newDiscordNotifier(cfg)
	if err != nil {
		logger.Warn("discord notifier disabled", "error", err)
	} else if notifier != nil {
		observers = append(observers, notifier)
		notifyTask := notifier.start(taskCtx)
		defer notifyTask.Abort()
		logger.Info("discord notices enabled", "channel", cfg.DiscordChannelID)
	}

	miner := NewMiner(minerOptions{
		Hasher:         hasher,
		BroadcastDepth: cfg.BroadcastDepth,
		ResultDepth:    cfg.ResultQueueDepth,
		MaxWorkers:     cfg.Workers,
	})
	client := NewPoolClient(cfg.PoolURL, cfg.Address, cfg.HTTPTimeout)
	pool := NewPool(client, cfg.TemplateInterval, observers...)

	// Workers subscribe before the first template is published so none of
	// them misses it.
	for i := 0; i < cfg.Workers; i++ {
		if _, err := miner.SpawnWorker(taskCtx); err != nil {
			miner.TerminateWorkers()
			return fmt.Errorf("spawn worker %d: %w", i+1, err)
		}
	}
	refresher := pool.SpawnTemplateRefresher(taskCtx, miner.Broadcaster())
	submitter := pool.SpawnNonceSubmitter(taskCtx, miner.Results())
	monitor := miner.SpawnMonitor(taskCtx, cfg.MonitorInterval, stats, pool)
	zmqWatcher := pool.SpawnTemplateNotifier(taskCtx, cfg.ZMQTemplateAddr, cfg.ZMQTemplateTopic)

	<-ctx.Done()
	if releaseSignals != nil {
		releaseSignals()
	}
	logger.Info("shutdown requested; stopping workers")

	miner.TerminateWorkers()
	monitor.Abort()
	refresher.Abort()
	submitter.Abort()
	zmqWatcher.Abort()

	if !miner.WaitTimeout(shutdownGrace) {
		logger.Warn("workers still running after grace period", "running", miner.RunningWorkers())
	}
	snap := stats.Snapshot()
	logger.Info("miner stopped", "hashes", miner.Hashes(), "accepted", snap.Accepted, "rejected", snap.Rejected, "failed", snap.Failed)
	return nil
}
