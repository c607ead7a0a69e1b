package publish

import "sync"

// State is the publisher's memory: the last published fingerprint and the
// message id of every target. It is rebuilt from channel history after a
// restart, so losing it costs one redundant edit per target.
type State struct {
	mu           sync.RWMutex
	fingerprints map[string]string
	messages     map[string]string
}

// NewState creates empty publisher state.
func NewState() *State {
	return &State{
		fingerprints: make(map[string]string),
		messages:     make(map[string]string),
	}
}

// Fingerprint returns the last published fingerprint of target.
func (s *State) Fingerprint(target string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprints[target]
}

// MessageID returns the remembered message of target.
func (s *State) MessageID(target string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.messages[target]
	return id, ok
}

// Published records a successful publish.
func (s *State) Published(target, fingerprint, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints[target] = fingerprint
	s.messages[target] = messageID
}

// Forget drops the message id of target.
func (s *State) Forget(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, target)
}

// Reset clears the fingerprint of target so the next publish always syncs.
func (s *State) Reset(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fingerprints, target)
}
