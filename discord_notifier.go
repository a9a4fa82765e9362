package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	discordQueueDepth = 16
	discordMaxChars   = 1000
)

// discordSender is the slice of discordgo.Session the notifier needs.
type discordSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// discordNotifier posts submission outcomes to a Discord channel. Sending
// happens on its own goroutine; when the queue is full lines are dropped
// so the submitter never waits on Discord.
type discordNotifier struct {
	dg            discordSender
	channelID     string
	prefix        string
	notifyRejects bool
	queue         chan string
	dropped       atomic.Uint64
	disabled      atomic.Bool
}

// newDiscordNotifier returns nil when Discord is not configured. Only the
// REST API is used, so no gateway connection is opened.
func newDiscordNotifier(cfg Config) (*discordNotifier, error) {
	if !cfg.discordEnabled() {
		return nil, nil
	}
	dg, err := discordgo.New("Bot " + strings.TrimSpace(cfg.DiscordBotToken))
	if err != nil {
		return nil, err
	}
	return newDiscordNotifierWithSender(dg, cfg.DiscordChannelID, cfg.MinerName, cfg.DiscordNotifyRejects), nil
}

func newDiscordNotifierWithSender(dg discordSender, channelID, minerName string, notifyRejects bool) *discordNotifier {
	prefix := "[" + minerSoftwareName + "] "
	if minerName != "" {
		prefix = "[" + minerSoftwareName + "/" + minerName + "] "
	}
	return &discordNotifier{
		dg:            dg,
		channelID:     strings.TrimSpace(channelID),
		prefix:        prefix,
		notifyRejects: notifyRejects,
		queue:         make(chan string, discordQueueDepth),
	}
}

func (n *discordNotifier) observeSubmission(rec submissionRecord) {
	if n == nil {
		return
	}
	var line string
	switch rec.Outcome {
	case outcomeAccepted:
		line = fmt.Sprintf("Work accepted for template %s", rec.TemplateID.Short())
	case outcomeRejected:
		if !n.notifyRejects {
			return
		}
		line = fmt.Sprintf("Work rejected for template %s: %s", rec.TemplateID.Short(), rec.Reason)
	default:
		return
	}
	n.enqueue(line)
}

func (n *discordNotifier) enqueue(line string) {
	if n.disabled.Load() {
		return
	}
	line = truncateUTF8(strings.TrimSpace(n.prefix+line), discordMaxChars)
	select {
	case n.queue <- line:
	default:
		n.dropped.Add(1)
	}
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (n *discordNotifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-n.queue:
			n.send(line)
		}
	}
}

func (n *discordNotifier) send(line string) {
	if dropped := n.dropped.Swap(0); dropped > 0 {
		line += fmt.Sprintf("\n(%d earlier notices dropped)", dropped)
	}
	if _, err := n.dg.ChannelMessageSend(n.channelID, line); err != nil {
		logger.Warn("discord notify send failed", "error", err)
		if isDiscordPermanentError(err) {
			logger.Warn("discord notices disabled after permanent error")
			n.disabled.Store(true)
		}
	}
}

func (n *discordNotifier) start(ctx context.Context) *taskHandle {
	if n == nil {
		return nil
	}
	return startTask(ctx, "discord-notifier", n.run)
}

func isDiscordPermanentError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, discordgo.ErrUnauthorized) {
		return true
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return true
		}
	}
	return false
}
