package umlsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cdr.dev/slog"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"oss.terrastruct.com/umlcanvas/lib/env"
	"oss.terrastruct.com/umlcanvas/lib/log"
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umlhistory"
)

const DefaultSyncTimeout = 400 * time.Millisecond

var (
	ErrStaleReply   = errors.New("reply does not match request")
	// ErrWrongSession rejects a snapshot meant for a session that is not open.
	ErrWrongSession = errors.New("snapshot is not for the open session")
)

// SnapshotRequest asks the rendering surface for its current diagram. ID
// correlates the reply.
type SnapshotRequest struct {
	ID string `json:"requestId"`
}

type SnapshotReply struct {
	ID       string             `json:"requestId"`
	Snapshot *umlgraph.Snapshot `json:"diagram"`
}

// SnapshotProvider answers a SnapshotRequest. It should honor ctx; the
// registry stops waiting when ctx is done either way.
type SnapshotProvider func(ctx context.Context, req SnapshotRequest) (*SnapshotReply, error)

type Options struct {
	// SyncTimeout bounds how long a switch waits for the provider.
	SyncTimeout time.Duration
	Provider    SnapshotProvider
	// History is reset whenever a session is created or opened.
	History *umlhistory.History
	// OnSwitch is called with the newly current session.
	OnSwitch func(*Session)
}

// Registry tracks the open session. It is safe for concurrent use.
type Registry struct {
	store Store

	// switchMu serializes Create and Open. It is held across the provider
	// call, mu is not.
	switchMu sync.Mutex

	mu       sync.Mutex
	current  string
	provider SnapshotProvider
	history  *umlhistory.History
	onSwitch func(*Session)

	syncTimeout time.Duration
	now         func() time.Time
}

func NewRegistry(store Store, opts Options) *Registry {
	if ms, ok := env.SyncTimeoutMS(); ok {
		opts.SyncTimeout = time.Duration(ms) * time.Millisecond
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = DefaultSyncTimeout
	}
	return &Registry{
		store:       store,
		provider:    opts.Provider,
		history:     opts.History,
		onSwitch:    opts.OnSwitch,
		syncTimeout: opts.SyncTimeout,
		now:         time.Now,
	}
}

// SetProvider replaces the snapshot provider, nil disables syncing.
func (r *Registry) SetProvider(p SnapshotProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provider = p
}

func (r *Registry) Store() Store {
	return r.store
}

func (r *Registry) CurrentID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Current returns the open session, nil when none is open.
func (r *Registry) Current(ctx context.Context) (*Session, error) {
	id := r.CurrentID()
	if id == "" {
		return nil, nil
	}
	s, err := r.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// Create stores a new empty session and makes it current. An invalid type
// creates a use case diagram.
func (r *Registry) Create(ctx context.Context, name string, typ umlgraph.DiagramType) (*Session, error) {
	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	if !typ.Valid() {
		typ = umlgraph.UseCaseDiagram
	}
	now := r.now().UTC()
	s := &Session{
		ID:         uuid.NewString(),
		Name:       name,
		Type:       typ,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	s.Snapshot = &umlgraph.Snapshot{
		ID:     s.ID,
		Name:   name,
		Type:   typ,
		Shapes: []umlgraph.ShapeSnapshot{},
		Edges:  []umlgraph.EdgeSnapshot{},
	}
	if err := r.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.Info(ctx, "created session", slog.F("id", s.ID), slog.F("name", name), slog.F("type", typ))
	r.switchTo(s)
	return s.Copy(), nil
}

// Open makes the session with id current. The open session is first synced
// from the snapshot provider.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	if _, err := r.store.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to open session %q: %w", id, err)
	}
	r.syncCurrent(ctx)

	s, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to open session %q: %w", id, err)
	}
	log.Info(ctx, "opened session", slog.F("id", s.ID), slog.F("name", s.Name))
	r.switchTo(s)
	return s.Copy(), nil
}

func (r *Registry) switchTo(s *Session) {
	r.mu.Lock()
	r.current = s.ID
	history := r.history
	onSwitch := r.onSwitch
	r.mu.Unlock()

	if history != nil {
		history.Reset()
	}
	if onSwitch != nil {
		onSwitch(s.Copy())
	}
}

// Sync pulls the surface's snapshot into the open session without switching.
func (r *Registry) Sync(ctx context.Context) bool {
	r.switchMu.Lock()
	defer r.switchMu.Unlock()
	return r.syncCurrent(ctx)
}

// syncCurrent asks the provider for the open session's state and saves it.
// Any failure keeps the stored snapshot and is only logged.
func (r *Registry) syncCurrent(ctx context.Context) bool {
	cur, err := r.Current(ctx)
	if err != nil {
		log.Warn(ctx, "failed to load open session before sync", slog.Error(err))
		return false
	}
	if cur == nil {
		return false
	}

	r.mu.Lock()
	provider := r.provider
	r.mu.Unlock()
	if provider == nil {
		log.Warn(ctx, "no snapshot provider, keeping stored snapshot", slog.F("session", cur.ID))
		return false
	}

	req := SnapshotRequest{ID: uuid.NewString()}
	ctx = log.WithFields(ctx, slog.F("session", cur.ID), slog.F("request", req.ID))
	reply, err := r.request(ctx, provider, req)
	if err != nil {
		log.Warn(ctx, "snapshot sync failed, keeping stored snapshot", slog.Error(err))
		return false
	}

	if _, err := r.SaveTo(ctx, cur.ID, reply.Snapshot); err != nil {
		log.Warn(ctx, "failed to save synced snapshot", slog.Error(err))
		return false
	}
	log.Debug(ctx, "synced session from surface")
	return true
}

func (r *Registry) request(ctx context.Context, provider SnapshotProvider, req SnapshotRequest) (*SnapshotReply, error) {
	ctx, cancel := context.WithTimeout(ctx, r.syncTimeout)
	defer cancel()

	type result struct {
		reply *SnapshotReply
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := provider(ctx, req)
		done <- result{reply, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		if res.reply == nil || res.reply.Snapshot == nil {
			return nil, errors.New("empty reply")
		}
		if res.reply.ID != req.ID {
			return nil, fmt.Errorf("%w: got %q, want %q", ErrStaleReply, res.reply.ID, req.ID)
		}
		return res.reply, nil
	}
}

// Save stores snap as the diagram of the session named by snap.ID, or of the
// open session when snap has no ID. See SaveTo.
func (r *Registry) Save(ctx context.Context, snap *umlgraph.Snapshot) (*Session, error) {
	if snap == nil {
		return nil, errors.New("failed to save: nil snapshot")
	}
	id := snap.ID
	if id == "" {
		id = r.CurrentID()
	}
	return r.SaveTo(ctx, id, snap)
}

// SaveTo stores snap as the diagram of session id, which must be the open
// session. A snap carrying another session's ID fails with ErrWrongSession.
func (r *Registry) SaveTo(ctx context.Context, id string, snap *umlgraph.Snapshot) (*Session, error) {
	if snap == nil {
		return nil, errors.New("failed to save: nil snapshot")
	}
	cur := r.CurrentID()
	if cur == "" {
		return nil, errors.New("failed to save: no open session")
	}
	if id != cur {
		return nil, fmt.Errorf("failed to save session %q: %w: %q is open", id, ErrWrongSession, cur)
	}
	if snap.ID != "" && snap.ID != id {
		return nil, fmt.Errorf("failed to save session %q: %w: snapshot is %q", id, ErrWrongSession, snap.ID)
	}
	return r.save(ctx, id, snap)
}

// save merges snap into the session, keeping the session's id and diagram
// type, and touches its modification time.
func (r *Registry) save(ctx context.Context, id string, snap *umlgraph.Snapshot) (*Session, error) {
	s, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to save session %q: %w", id, err)
	}
	merged := snap.Copy()
	merged.ID = s.ID
	merged.Type = s.Type
	if merged.Name == "" {
		merged.Name = s.Name
	}
	s.Snapshot = merged
	s.ModifiedAt = r.now().UTC()
	if err := r.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Registry) List(ctx context.Context) ([]*Session, error) {
	return r.store.List(ctx)
}

func (r *Registry) Rename(ctx context.Context, id, name string) error {
	s, err := r.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to rename session %q: %w", id, err)
	}
	s.Name = name
	if s.Snapshot != nil {
		s.Snapshot.Name = name
	}
	s.ModifiedAt = r.now().UTC()
	return r.store.Put(ctx, s)
}

// Delete removes a session. Deleting the open session leaves none open.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %q: %w", id, err)
	}
	r.mu.Lock()
	if r.current == id {
		r.current = ""
	}
	r.mu.Unlock()
	log.Info(ctx, "deleted session", slog.F("id", id))
	return nil
}

// FindByName returns the most recently modified session whose name matches
// ignoring case, or nil.
func (r *Registry) FindByName(ctx context.Context, name string) (*Session, error) {
	sessions, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	want := fold.String(name)
	for _, s := range sessions {
		if fold.String(s.Name) == want {
			return s, nil
		}
	}
	return nil, nil
}

func (r *Registry) Close() error {
	return r.store.Close()
}
