// Package umlsession keeps named diagram sessions, persists them and
// synchronizes the open session with the rendering surface before switching.
package umlsession

import (
	"context"
	"errors"
	"sort"
	"time"

	"oss.terrastruct.com/umlcanvas/umlgraph"
)

var ErrNotFound = errors.New("session not found")

// Session is one named diagram document.
type Session struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Type       umlgraph.DiagramType `json:"type"`
	CreatedAt  time.Time            `json:"createdAt"`
	ModifiedAt time.Time            `json:"modifiedAt"`
	Snapshot   *umlgraph.Snapshot   `json:"diagram"`
}

func (s *Session) Copy() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Snapshot = s.Snapshot.Copy()
	return &c
}

// Store persists sessions. Implementations are safe for concurrent use and
// return copies.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	// List returns every session, most recently modified first.
	List(ctx context.Context) ([]*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

func sortByModified(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.After(b.ModifiedAt)
		}
		return a.ID < b.ID
	})
}
