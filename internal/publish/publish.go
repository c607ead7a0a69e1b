// Package publish keeps exactly one live channel message per artifact
// target and only touches the channel when the artifact changed.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/timeattack/internal/adapters/channel"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// Outcome is the result of one publish cycle.
type Outcome string

// Publish outcomes.
const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeCreated Outcome = "created"
	OutcomeEdited  Outcome = "edited"
)

// Artifact is one publishable target.
type Artifact struct {
	// Target names the logical message, e.g. "standings/season1".
	Target string
	// Source returns the raw artifact bytes that drive change detection.
	Source func(ctx context.Context) ([]byte, error)
	// Render turns raw bytes into message text, without the marker.
	Render func(ctx context.Context, raw []byte) (string, error)
}

// HintStore persists message ids across restarts.
type HintStore interface {
	Hint(ctx context.Context, target string) (string, bool, error)
	SetHint(ctx context.Context, target, messageID string) error
	DropHint(ctx context.Context, target string) error
}

// Publisher synchronises artifacts to one channel.
type Publisher struct {
	ch           channel.Channel
	state        *State
	hints        HintStore
	settle       time.Duration
	historyLimit int
	mu           sync.Mutex
	authorID     string
	sleep        func(ctx context.Context, d time.Duration) error
	logger       logger.Logger
}

// New creates a publisher writing to ch.
func New(ch channel.Channel, opts ...Option) *Publisher {
	p := &Publisher{
		ch:           ch,
		state:        NewState(),
		settle:       defaultSettleDelay,
		historyLimit: defaultHistoryLimit,
		sleep:        sleepCtx,
		logger:       logger.Get().Named("publisher"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the publisher's fingerprint and message memory.
func (p *Publisher) State() *State { return p.state }

// Publish runs one cycle for a. The channel is only contacted when the
// artifact's fingerprint differs from the last successful publish.
func (p *Publisher) Publish(ctx context.Context, a Artifact) (Outcome, error) {
	kind := targetKind(a.Target)
	outcome, err := p.publish(ctx, a)
	switch {
	case errors.Is(err, ErrInFlight):
		metrics.RecordPublish(kind, "in_flight")
	case err != nil:
		metrics.RecordPublish(kind, "failed")
	default:
		metrics.RecordPublish(kind, string(outcome))
	}
	return outcome, err
}

func (p *Publisher) publish(ctx context.Context, a Artifact) (Outcome, error) {
	raw, err := a.Source(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: read: %w", a.Target, err)
	}
	fp := Fingerprint(a.Target, raw)
	if p.state.Fingerprint(a.Target) == fp {
		return OutcomeSkipped, nil
	}

	if p.settle > 0 {
		if err := p.sleep(ctx, p.settle); err != nil {
			return "", fmt.Errorf("publish %s: settle: %w", a.Target, err)
		}
		again, err := a.Source(ctx)
		if err != nil {
			return "", fmt.Errorf("publish %s: re-read: %w", a.Target, err)
		}
		if Fingerprint(a.Target, again) != fp {
			return "", fmt.Errorf("publish %s: %w", a.Target, ErrInFlight)
		}
	}

	body, err := a.Render(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("publish %s: render: %w", a.Target, err)
	}
	content := Compose(body, a.Target, channel.MaxContentLength)

	id, outcome, err := p.reconcile(ctx, a.Target, content)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", a.Target, err)
	}

	p.state.Published(a.Target, fp, id)
	if p.hints != nil {
		if err := p.hints.SetHint(ctx, a.Target, id); err != nil {
			p.logger.Warn(ctx, "failed to persist message hint",
				logger.String("target", a.Target), logger.Error(err))
		}
	}
	p.logger.Info(ctx, "artifact published",
		logger.String("target", a.Target),
		logger.String("outcome", string(outcome)),
		logger.String("message_id", id))
	return outcome, nil
}

// reconcile edits the message that already carries target or sends a new one.
func (p *Publisher) reconcile(ctx context.Context, target, content string) (string, Outcome, error) {
	if id, ok := p.hint(ctx, target); ok {
		msg, err := p.ch.Edit(ctx, id, content)
		switch {
		case err == nil:
			return msg.ID, OutcomeEdited, nil
		case errors.Is(err, channel.ErrNotFound):
			p.logger.Info(ctx, "remembered message is gone, scanning history",
				logger.String("target", target), logger.String("message_id", id))
			p.forget(ctx, target)
		default:
			return "", "", err
		}
	}

	author, err := p.author(ctx)
	if err != nil {
		return "", "", err
	}
	history, err := p.ch.FetchHistory(ctx, p.historyLimit)
	if err != nil {
		return "", "", err
	}
	for _, m := range history {
		if m.AuthorID != author {
			continue
		}
		if !HasMarker(m.Content, target) {
			continue
		}
		msg, err := p.ch.Edit(ctx, m.ID, content)
		if err != nil {
			return "", "", err
		}
		return msg.ID, OutcomeEdited, nil
	}

	msg, err := p.ch.Send(ctx, content)
	if err != nil {
		return "", "", err
	}
	return msg.ID, OutcomeCreated, nil
}

// author returns the id our own messages carry. Without a configured id the
// channel is asked; a marker alone never identifies our message.
func (p *Publisher) author(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.authorID != "" {
		return p.authorID, nil
	}
	id, err := p.ch.Self(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrUnknownAuthor
	}
	p.authorID = id
	return id, nil
}

func (p *Publisher) hint(ctx context.Context, target string) (string, bool) {
	if id, ok := p.state.MessageID(target); ok {
		return id, true
	}
	if p.hints == nil {
		return "", false
	}
	id, ok, err := p.hints.Hint(ctx, target)
	if err != nil {
		p.logger.Warn(ctx, "failed to read message hint", logger.String("target", target), logger.Error(err))
		return "", false
	}
	return id, ok
}

func (p *Publisher) forget(ctx context.Context, target string) {
	p.state.Forget(target)
	if p.hints == nil {
		return
	}
	if err := p.hints.DropHint(ctx, target); err != nil {
		p.logger.Warn(ctx, "failed to drop message hint", logger.String("target", target), logger.Error(err))
	}
}

func targetKind(target string) string {
	kind, _, _ := strings.Cut(target, "/")
	return kind
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
