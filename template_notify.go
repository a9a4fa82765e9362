package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
)

const (
	defaultTemplateNotifyTopic = "template"

	templateNotifyReceiveTimeout = time.Second
	templateNotifyBackoffMin     = time.Second
	templateNotifyBackoffMax     = 30 * time.Second
)

// templateNotifier subscribes to a coordinator ZMQ feed and turns every
// message on the template topic into an immediate refresh. The periodic
// poll keeps running either way; this only shortens the wait for new work.
type templateNotifier struct {
	addr    string
	topic   string
	refresh func()

	healthy     atomic.Bool
	disconnects atomic.Uint64
	reconnects  atomic.Uint64
	received    atomic.Uint64
}

func newTemplateNotifier(addr, topic string, refresh func()) *templateNotifier {
	if topic == "" {
		topic = defaultTemplateNotifyTopic
	}
	return &templateNotifier{addr: addr, topic: topic, refresh: refresh}
}

type templateNotifyStats struct {
	Healthy     bool
	Received    uint64
	Disconnects uint64
	Reconnects  uint64
}

// Stats reports the feed's health counters for the rate report.
func (n *templateNotifier) Stats() templateNotifyStats {
	return templateNotifyStats{
		Healthy:     n.healthy.Load(),
		Received:    n.received.Load(),
		Disconnects: n.disconnects.Load(),
		Reconnects:  n.reconnects.Load(),
	}
}

func (n *templateNotifier) markHealthy() {
	if n.healthy.Swap(true) {
		return
	}
	n.reconnects.Add(1)
	logger.Info("template notify feed healthy", "addr", n.addr)
}

func (n *templateNotifier) markUnhealthy(reason string, err error) {
	fields := []any{"addr", n.addr, "reason", reason}
	if err != nil {
		fields = append(fields, "error", err)
	}
	if n.healthy.Swap(false) {
		n.disconnects.Add(1)
		logger.Warn("template notify feed unhealthy", fields...)
	} else if err != nil {
		logger.Error("template notify feed error", fields...)
	}
}

// handle reacts to one message. Any message proves the feed is alive.
func (n *templateNotifier) handle(topic string) {
	n.markHealthy()
	if topic != n.topic {
		return
	}
	n.received.Add(1)
	if debugLogging {
		logger.Debug("template notification", "topic", topic)
	}
	if n.refresh != nil {
		n.refresh()
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	cur *= 2
	if cur > templateNotifyBackoffMax {
		cur = templateNotifyBackoffMax
	}
	return cur
}

func (n *templateNotifier) dial() (*zmq4.Socket, error) {
	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	_ = sub.SetLinger(0)
	if err := sub.SetSubscribe(n.topic); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if err := sub.SetRcvtimeo(templateNotifyReceiveTimeout); err != nil {
		sub.Close()
		return nil, fmt.Errorf("set_rcvtimeo: %w", err)
	}
	if err := sub.Connect(n.addr); err != nil {
		sub.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	return sub, nil
}

func (n *templateNotifier) run(ctx context.Context) {
	backoff := templateNotifyBackoffMin
	for {
		if ctx.Err() != nil {
			return
		}
		sub, err := n.dial()
		if err != nil {
			n.markUnhealthy("dial", err)
			if err := sleepContext(ctx, backoff); err != nil {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		logger.Info("watching template notifications", "addr", n.addr, "topic", n.topic)
		backoff = templateNotifyBackoffMin

		for {
			if ctx.Err() != nil {
				sub.Close()
				return
			}
			frames, err := sub.RecvMessageBytes(0)
			if err != nil {
				eno := zmq4.AsErrno(err)
				if eno == zmq4.Errno(syscall.EAGAIN) || eno == zmq4.ETIMEDOUT {
					continue
				}
				n.markUnhealthy("receive", err)
				sub.Close()
				if err := sleepContext(ctx, backoff); err != nil {
					return
				}
				backoff = nextBackoff(backoff)
				break
			}
			if len(frames) == 0 {
				continue
			}
			n.handle(string(frames[0]))
		}
	}
}

// SpawnTemplateNotifier starts the ZMQ watcher; nil when addr is empty.
func (p *Pool) SpawnTemplateNotifier(ctx context.Context, addr, topic string) *taskHandle {
	if addr == "" {
		return nil
	}
	n := newTemplateNotifier(addr, topic, p.RequestRefresh)
	p.notifier.Store(n)
	return startTask(ctx, "template-notifier", n.run)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
