package indexer

import (
	"context"
	"sync"
)

// Session tracks which literal text values have been indexed during one
// caller session, so reference sets (e.g. style-analysis snippets) are not
// re-embedded when re-submitted. It is an explicit, caller-owned object, not
// hidden global state: two callers with separate sessions may index identical
// text independently.
type Session struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{seen: make(map[string]struct{})}
}

// contains reports whether text was already indexed in this session.
func (s *Session) contains(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[text]
	return ok
}

// add marks text as indexed.
func (s *Session) add(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[text] = struct{}{}
}

// Len returns how many distinct texts the session has recorded.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// IndexOnce indexes the text unless this session already indexed the exact
// same text value, in which case it returns indexed=false without touching
// the provider or the table. The text is recorded only after a successful
// write, so a failed attempt can be retried.
func (ix *Indexer) IndexOnce(ctx context.Context, session *Session, req Request) (id string, indexed bool, err error) {
	if session != nil && session.contains(req.Text) {
		return "", false, nil
	}
	id, err = ix.Index(ctx, req)
	if err != nil {
		return "", false, err
	}
	if session != nil {
		session.add(req.Text)
	}
	return id, true, nil
}
