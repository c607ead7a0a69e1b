// Package channel talks to the external notification channel that carries
// published artifacts.
package channel

import (
	"context"
	"time"
)

// MaxContentLength is the largest message body the channel accepts.
const MaxContentLength = 2000

// Message is a posted channel message.
type Message struct {
	ID        string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// Channel sends, lists and edits messages of one channel.
type Channel interface {
	Send(ctx context.Context, content string) (Message, error)
	// FetchHistory returns up to limit recent messages, newest first.
	FetchHistory(ctx context.Context, limit int) ([]Message, error)
	// Edit replaces the content of message id. A deleted message yields ErrNotFound.
	Edit(ctx context.Context, id, content string) (Message, error)
	// Self returns the author id this channel posts as.
	Self(ctx context.Context) (string, error)
}
