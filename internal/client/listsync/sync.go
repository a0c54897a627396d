// Package listsync keeps the in-memory market list consistent with the
// remote list.
//
// Every mutation is pessimistic: the local snapshot changes only after the
// server acknowledged the request. Network calls run without holding the
// lock. Requests for the same item are serialized through a per-item gate,
// so the server applies them in the order they were issued and every
// acknowledgment is applied locally in that same order. Requests for
// different items may be in flight at once.
// Close cancels everything in flight and makes late answers no-ops.
package listsync

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/marketlist/internal/client/client"
	"github.com/dmitrijs2005/marketlist/internal/client/models"
	"github.com/dmitrijs2005/marketlist/internal/client/session"
	"github.com/dmitrijs2005/marketlist/internal/logging"
)

// IdentitySource yields the current session. *session.Guard implements it.
type IdentitySource interface {
	Session(ctx context.Context) (session.Session, error)
}

type entry struct {
	key  uuid.UUID
	gate chan struct{} // holds a token while a request for the item is in flight
	item models.ListItem
}

func newEntry(item models.ListItem) *entry {
	return &entry{key: uuid.New(), gate: make(chan struct{}, 1), item: item}
}

func (e *entry) release() { <-e.gate }

type editSlot struct {
	key  uuid.UUID
	text string
}

// EditState describes the open edit, if any.
type EditState struct {
	Index int
	Text  string
}

type Synchronizer struct {
	remote client.ListClient
	ids    IdentitySource
	logger logging.Logger

	lifetime context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	entries []*entry
	edit    *editSlot
	lastErr string
	loadRev uint64
	closed  bool
}

func New(remote client.ListClient, ids IdentitySource, logger logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		remote:   remote,
		ids:      ids,
		logger:   logger.With("component", "listsync"),
		lifetime: lifetime,
		cancel:   cancel,
	}
}

// callContext derives a request context that ends with either ctx or the
// synchronizer lifetime.
func (s *Synchronizer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.lifetime, cancel)
	return cctx, func() {
		stop()
		cancel()
	}
}

// identity returns the active session or records ErrNoIdentity.
func (s *Synchronizer) identity(ctx context.Context) (session.Session, error) {
	sess, err := s.ids.Session(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrNoIdentity, err)
		s.mu.Lock()
		s.lastErr = Message(err)
		s.mu.Unlock()
		return session.Session{}, err
	}
	return sess, nil
}

// fail records err in the shared message slot. Caller holds mu.
func (s *Synchronizer) fail(ctx context.Context, op string, err error) error {
	s.lastErr = Message(err)
	s.logger.Warn(ctx, "list operation failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Synchronizer) find(key uuid.UUID) (int, *entry) {
	for i, e := range s.entries {
		if e.key == key {
			return i, e
		}
	}
	return -1, nil
}

func (s *Synchronizer) at(index int) (*entry, error) {
	if index < 0 || index >= len(s.entries) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return s.entries[index], nil
}

// claim waits until no other request for e is in flight and returns the
// item as it is now. On success the caller owns the gate and must release
// it once the response has been applied.
func (s *Synchronizer) claim(ctx context.Context, op string, e *entry) (models.ListItem, error) {
	select {
	case e.gate <- struct{}{}:
	case <-ctx.Done():
		return models.ListItem{}, ctx.Err()
	case <-s.lifetime.Done():
		return models.ListItem{}, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		e.release()
		return models.ListItem{}, ErrClosed
	}
	if i, _ := s.find(e.key); i < 0 {
		e.release()
		return models.ListItem{}, s.fail(ctx, op, ErrItemRemoved)
	}
	return e.item, nil
}

// begin resolves index against the current snapshot and claims the entry.
func (s *Synchronizer) begin(ctx context.Context, op string, index int) (*entry, models.ListItem, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, models.ListItem{}, ErrClosed
	}
	e, err := s.at(index)
	s.mu.Unlock()
	if err != nil {
		return nil, models.ListItem{}, err
	}

	item, err := s.claim(ctx, op, e)
	if err != nil {
		return nil, models.ListItem{}, err
	}
	return e, item, nil
}

// Initialize fetches the authoritative list and replaces the snapshot
// wholesale. On failure the snapshot is left as it was. When loads
// overlap only the last one issued is applied.
func (s *Synchronizer) Initialize(ctx context.Context) error {
	sess, err := s.identity(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.loadRev++
	rev := s.loadRev
	s.mu.Unlock()

	cctx, cancel := s.callContext(ctx)
	items, err := s.remote.List(cctx, sess.Token)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.loadRev != rev {
		s.logger.Debug(ctx, "superseded list load dropped", "rev", rev)
		return ErrStaleResponse
	}
	if err != nil {
		return s.fail(ctx, "initialize", err)
	}

	// Entries keep their gate across reloads so requests still in flight
	// stay serialized with the ones issued afterwards.
	known := make(map[int64]*entry, len(s.entries))
	for _, e := range s.entries {
		known[e.item.ID] = e
	}
	entries := make([]*entry, 0, len(items))
	for _, it := range items {
		if e, ok := known[it.ID]; ok {
			e.item = it
			entries = append(entries, e)
			continue
		}
		entries = append(entries, newEntry(it))
	}
	s.entries = entries
	s.edit = nil
	s.logger.Info(ctx, "list loaded", "items", len(entries), "user_id", sess.Identity.SubjectID)
	return nil
}

// Add creates an item on the server and appends it once acknowledged.
// Empty or whitespace-only text is rejected silently.
func (s *Synchronizer) Add(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	sess, err := s.identity(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	cctx, cancel := s.callContext(ctx)
	item, err := s.remote.Create(cctx, sess.Token, text, sess.Identity.SubjectID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err != nil {
		return s.fail(ctx, "add", err)
	}
	s.entries = append(s.entries, newEntry(item))
	s.logger.Debug(ctx, "item added", "item_id", item.ID)
	return nil
}

// MarkDone sets the item at index to Done once the server agrees. The text
// sent is the item's text at the time the request goes out.
func (s *Synchronizer) MarkDone(ctx context.Context, index int) error {
	sess, err := s.identity(ctx)
	if err != nil {
		return err
	}

	e, item, err := s.begin(ctx, "mark done", index)
	if err != nil {
		return err
	}
	defer e.release()

	cctx, cancel := s.callContext(ctx)
	_, err = s.remote.Update(cctx, sess.Token, item.ID, item.Text, models.StatusDone, sess.Identity.SubjectID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err != nil {
		return s.fail(ctx, "mark done", err)
	}
	e.item.Status = models.StatusDone
	return nil
}

// BeginEdit opens the edit slot on the item at index, replacing any edit
// in progress. No network call is made.
func (s *Synchronizer) BeginEdit(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	e, err := s.at(index)
	if err != nil {
		return err
	}
	s.edit = &editSlot{key: e.key, text: e.item.Text}
	return nil
}

// SaveEdit stores text as the scratch text and sends it with status
// Pending. On acknowledgment the item is overwritten and the edit closes;
// on failure the edit stays open with the scratch text kept.
func (s *Synchronizer) SaveEdit(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.edit == nil {
		s.mu.Unlock()
		return ErrNotEditing
	}
	s.edit.text = text
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return ErrEmptyText
	}
	key := s.edit.key
	_, e := s.find(key)
	s.mu.Unlock()
	if e == nil {
		return ErrNotEditing
	}

	sess, err := s.identity(ctx)
	if err != nil {
		return err
	}

	item, err := s.claim(ctx, "save edit", e)
	if err != nil {
		return err
	}
	defer e.release()

	cctx, cancel := s.callContext(ctx)
	_, err = s.remote.Update(cctx, sess.Token, item.ID, text, models.StatusPending, sess.Identity.SubjectID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err != nil {
		return s.fail(ctx, "save edit", err)
	}
	e.item.Text = text
	e.item.Status = models.StatusPending
	if s.edit != nil && s.edit.key == key {
		s.edit = nil
	}
	return nil
}

// Remove deletes the item at index and splices it out once acknowledged.
// Requests for the item still waiting behind the delete fail with
// ErrItemRemoved without reaching the server.
func (s *Synchronizer) Remove(ctx context.Context, index int) error {
	sess, err := s.identity(ctx)
	if err != nil {
		return err
	}

	e, item, err := s.begin(ctx, "remove", index)
	if err != nil {
		return err
	}
	defer e.release()

	cctx, cancel := s.callContext(ctx)
	err = s.remote.Remove(cctx, sess.Token, item.ID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err != nil {
		return s.fail(ctx, "remove", err)
	}
	if i, _ := s.find(e.key); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
	if s.edit != nil && s.edit.key == e.key {
		s.edit = nil
	}
	return nil
}

// Snapshot returns a copy of the list in display order.
func (s *Synchronizer) Snapshot() []models.ListItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ListItem, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.item
	}
	return out
}

// Editing reports the open edit; ok is false in viewing mode.
func (s *Synchronizer) Editing() (EditState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return EditState{}, false
	}
	i, _ := s.find(s.edit.key)
	if i < 0 {
		return EditState{}, false
	}
	return EditState{Index: i, Text: s.edit.text}, true
}

// LastError returns the most recent failure message, or "".
func (s *Synchronizer) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Synchronizer) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// Close ends the lifetime: in-flight calls are cancelled, their results
// dropped, and the snapshot is emptied. Further operations return
// ErrClosed. Close is idempotent.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.entries = nil
	s.edit = nil
	s.cancel()
}
