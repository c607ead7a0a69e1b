package channel

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"
)

// Memory is an in-process Channel for tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	authorID string
	nextID   int
	messages []Message // oldest first
	sends    int
	edits    int
	failNext error
}

// NewMemory creates an empty channel whose messages are authored by authorID.
func NewMemory(authorID string) *Memory {
	return &Memory{authorID: authorID, nextID: 1}
}

// FailNext makes the next call return err.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *Memory) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

// Send implements Channel.
func (m *Memory) Send(_ context.Context, content string) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return Message{}, err
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return Message{}, fmt.Errorf("send: %w", ErrTooLong)
	}
	msg := Message{
		ID:        strconv.Itoa(m.nextID),
		AuthorID:  m.authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	m.nextID++
	m.sends++
	m.messages = append(m.messages, msg)
	return msg, nil
}

// Self implements Channel.
func (m *Memory) Self(context.Context) (string, error) {
	return m.authorID, nil
}

// Post adds a message from another author, as a channel member would.
func (m *Memory) Post(authorID, content string) Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := Message{ID: strconv.Itoa(m.nextID), AuthorID: authorID, Content: content, CreatedAt: time.Now().UTC()}
	m.nextID++
	m.messages = append(m.messages, msg)
	return msg
}

// FetchHistory implements Channel.
func (m *Memory) FetchHistory(_ context.Context, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := make([]Message, 0, min(limit, len(m.messages)))
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.messages[i])
	}
	return out, nil
}

// Edit implements Channel.
func (m *Memory) Edit(_ context.Context, id, content string) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return Message{}, err
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return Message{}, fmt.Errorf("edit: %w", ErrTooLong)
	}
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].Content = content
			m.edits++
			return m.messages[i], nil
		}
	}
	return Message{}, fmt.Errorf("edit %s: %w", id, ErrNotFound)
}

// Delete removes message id.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return
		}
	}
}

// Messages returns every message, oldest first.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Counts returns how many sends and edits succeeded.
func (m *Memory) Counts() (sends, edits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends, m.edits
}
