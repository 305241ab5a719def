package handbook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Persister is the durable-storage collaborator. Implementations live in
// internal/persist; the store only ever hands it full snapshots keyed by
// handbook id.
type Persister interface {
	Save(ctx context.Context, id string, blob []byte) error
}

// Store is the single mutable source of truth for one handbook. All editing
// operations go through it; mutations run synchronously to completion under
// one lock, then a debounced durable-storage write is scheduled. Renderers
// and exports only ever see immutable snapshots.
type Store struct {
	mu       sync.Mutex
	handbook *Handbook

	activeModuleID string
	activeBlockID  string

	subMu       sync.Mutex
	subscribers map[int]func()
	nextSubID   int

	persister   Persister
	debounced   func(func())
	saveMu      sync.Mutex // at most one in-flight durable write
	saveTimeout time.Duration

	now    func() time.Time
	logger *log.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPersister attaches the durable-storage collaborator. Rapid successive
// mutations are coalesced with a trailing-edge debounce of the given
// interval before a snapshot is written.
func WithPersister(p Persister, interval time.Duration) StoreOption {
	return func(s *Store) {
		s.persister = p
		if interval > 0 {
			s.debounced = debounce.New(interval)
		}
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithLogger overrides the store's logger.
func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store seeded with a fresh single-module handbook.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		subscribers: make(map[int]func()),
		now:         time.Now,
		logger:      log.Default(),
		saveTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.debounced == nil {
		// No debounce configured: write immediately on each mutation.
		s.debounced = func(f func()) { go f() }
	}
	s.handbook = NewHandbook(s.now())
	s.activeModuleID = s.handbook.Modules[0].ID
	return s
}

// Subscribe registers a change listener, called after every successful
// mutation. The returned function removes the listener.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// changed schedules the persistence write and notifies subscribers. Called
// after the mutation lock is released.
func (s *Store) changed() {
	if s.persister != nil {
		s.debounced(func() { s.saveNow() })
	}
	s.notify()
}

func (s *Store) saveNow() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	snap := s.Snapshot()
	blob, err := json.Marshal(snap)
	if err != nil {
		s.logger.Printf("[store] encode snapshot: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, snap.ID, blob); err != nil {
		s.logger.Printf("[store] persist handbook %s: %v", snap.ID, err)
	}
}

// Flush forces any pending durable write to complete now. Used on shutdown.
func (s *Store) Flush() error {
	if s.persister == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	snap := s.snapshotLocked()
	blob, err := json.Marshal(snap)
	if err != nil {
		return &IOError{Op: "save", Err: err}
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, snap.ID, blob); err != nil {
		return &IOError{Op: "save", Err: err}
	}
	return nil
}

func (s *Store) snapshotLocked() *Handbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handbook.Clone()
}

// Snapshot returns an immutable deep copy of the current handbook. Exports
// and renderers work from snapshots only.
func (s *Store) Snapshot() *Handbook {
	return s.snapshotLocked()
}

// ActiveModuleID returns the currently selected module id.
func (s *Store) ActiveModuleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeModuleID
}

// ActiveBlockID returns the currently selected block id, if any.
func (s *Store) ActiveBlockID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeBlockID
}

// CreateHandbook replaces the current handbook with a fresh one holding a
// single default module. The caller confirms overwriting prior state before
// calling; the operation itself always succeeds.
func (s *Store) CreateHandbook() (handbookID, firstModuleID string) {
	s.mu.Lock()
	h := NewHandbook(s.now())
	s.handbook = h
	s.activeModuleID = h.Modules[0].ID
	s.activeBlockID = ""
	s.mu.Unlock()
	s.changed()
	return h.ID, h.Modules[0].ID
}

// LoadHandbook replaces the current handbook with a validated external
// document. On validation failure the in-memory state is left untouched.
func (s *Store) LoadHandbook(h *Handbook) error {
	if h == nil {
		return &ValidationError{Field: "handbook", Reason: "nil handbook"}
	}
	if err := h.Validate(); err != nil {
		return err
	}
	loaded := h.Clone()
	s.mu.Lock()
	s.handbook = loaded
	s.activeModuleID = loaded.Modules[0].ID
	s.activeBlockID = ""
	s.mu.Unlock()
	s.changed()
	return nil
}

// LoadSnapshotJSON decodes and loads a serialized snapshot.
func (s *Store) LoadSnapshotJSON(data []byte) error {
	var h Handbook
	if err := json.Unmarshal(data, &h); err != nil {
		return &ValidationError{Field: "snapshot", Reason: fmt.Sprintf("malformed snapshot: %v", err)}
	}
	return s.LoadHandbook(&h)
}

// SetTitle updates the handbook title.
func (s *Store) SetTitle(title string) error {
	if err := ValidateTitle(title); err != nil {
		return err
	}
	s.mu.Lock()
	s.handbook.Title = title
	s.handbook.Touch("", s.now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// SetDescription updates the handbook description.
func (s *Store) SetDescription(desc string) {
	s.mu.Lock()
	s.handbook.Description = desc
	s.handbook.Touch("", s.now())
	s.mu.Unlock()
	s.changed()
}

// SetTheme replaces the handbook-level theme.
func (s *Store) SetTheme(theme Theme) {
	s.mu.Lock()
	s.handbook.Theme = theme
	s.handbook.Touch("", s.now())
	s.mu.Unlock()
	s.changed()
}

// SetModuleTheme sets or clears a module's theme override.
func (s *Store) SetModuleTheme(moduleID string, theme *Theme) error {
	s.mu.Lock()
	m := s.handbook.Module(moduleID)
	if m == nil {
		s.mu.Unlock()
		return &NotFoundError{Kind: "module", ID: moduleID}
	}
	if theme != nil {
		t := *theme
		m.Theme = &t
	} else {
		m.Theme = nil
	}
	s.handbook.Touch(moduleID, s.now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// SetModuleLayout updates a module's layout settings.
func (s *Store) SetModuleLayout(moduleID string, layout LayoutSettings) error {
	s.mu.Lock()
	m := s.handbook.Module(moduleID)
	if m == nil {
		s.mu.Unlock()
		return &NotFoundError{Kind: "module", ID: moduleID}
	}
	m.Layout = layout
	s.handbook.Touch(moduleID, s.now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// AddModule appends a new empty module. The title must be within bounds and
// its derived slug unique among siblings.
func (s *Store) AddModule(title string) (*Module, error) {
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	slug := Slugify(title)
	s.mu.Lock()
	for _, m := range s.handbook.Modules {
		if m.Slug == slug {
			s.mu.Unlock()
			return nil, &ValidationError{
				Field:  "module.slug",
				Reason: fmt.Sprintf("slug %q already used by module %q", slug, m.Title),
			}
		}
	}
	mod := NewModule(title, s.now())
	s.handbook.Modules = append(s.handbook.Modules, mod)
	s.handbook.Touch("", s.now())
	result := mod.Clone()
	s.mu.Unlock()
	s.changed()
	return result, nil
}

// RenameModule changes a module's title and re-derives its slug.
func (s *Store) RenameModule(moduleID, title string) error {
	if err := ValidateTitle(title); err != nil {
		return err
	}
	slug := Slugify(title)
	s.mu.Lock()
	m := s.handbook.Module(moduleID)
	if m == nil {
		s.mu.Unlock()
		return &NotFoundError{Kind: "module", ID: moduleID}
	}
	for _, other := range s.handbook.Modules {
		if other.ID != moduleID && other.Slug == slug {
			s.mu.Unlock()
			return &ValidationError{
				Field:  "module.slug",
				Reason: fmt.Sprintf("slug %q already used by module %q", slug, other.Title),
			}
		}
	}
	m.Title = title
	m.Slug = slug
	s.handbook.Touch(moduleID, s.now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// DeleteModule removes a module. The last remaining module cannot be
// deleted. If the deleted module was active, the first remaining module
// becomes active.
func (s *Store) DeleteModule(moduleID string) error {
	s.mu.Lock()
	if len(s.handbook.Modules) <= 1 {
		s.mu.Unlock()
		return &InvariantViolation{Op: "deleteModule", Reason: "a handbook must retain at least one module"}
	}
	idx := -1
	for i, m := range s.handbook.Modules {
		if m.ID == moduleID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return &NotFoundError{Kind: "module", ID: moduleID}
	}
	s.handbook.Modules = append(s.handbook.Modules[:idx], s.handbook.Modules[idx+1:]...)
	if s.activeModuleID == moduleID {
		s.activeModuleID = s.handbook.Modules[0].ID
		s.activeBlockID = ""
	}
	s.handbook.Touch("", s.now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// ReorderModules swaps the modules at the two indices. Equal or
// out-of-range indices are a no-op.
func (s *Store) ReorderModules(from, to int) {
	s.mu.Lock()
	mods := s.handbook.Modules
	if from == to || from < 0 || to < 0 || from >= len(mods) || to >= len(mods) {
		s.mu.Unlock()
		return
	}
	mods[from], mods[to] = mods[to], mods[from]
	s.handbook.Touch("", s.now())
	s.mu.Unlock()
	s.changed()
}

// AddBlock appends a block of the given type with default content to the
// module's block list.
func (s *Store) AddBlock(moduleID string, t BlockType) (*Block, error) {
	s.mu.Lock()
	m := s.handbook.Module(moduleID)
	if m == nil {
		s.mu.Unlock()
		return nil, &NotFoundError{Kind: "module", ID: moduleID}
	}
	b := NewBlock(t)
	m.Blocks = append(m.Blocks, b)
	s.handbook.Touch(moduleID, s.now())
	result := b.Clone()
	s.mu.Unlock()
	s.changed()
	return result, nil
}

// InsertBlock adds a block of the given type at a specific position in the
// module's block list. Positions past the end append.
func (s *Store) InsertBlock(moduleID string, t BlockType, pos int) (*Block, error) {
	s.mu.Lock()
	m := s.handbook.Module(moduleID)
	if m == nil {
		s.mu.Unlock()
		return nil, &NotFoundError{Kind: "module", ID: moduleID}
	}
	b := NewBlock(t)
	if pos < 0 || pos > len(m.Blocks) {
		pos = len(m.Blocks)
	}
	m.Blocks = append(m.Blocks, nil)
	copy(m.Blocks[pos+1:], m.Blocks[pos:])
	m.Blocks[pos] = b
	s.handbook.Touch(moduleID, s.now())
	result := b.Clone()
	s.mu.Unlock()
	s.changed()
	return result, nil
}

// UpdateBlockContent shallow-merges patch fields into the addressed block's
// content. An unknown block id is a no-op (the block may have been deleted
// by the time an async edit lands).
func (s *Store) UpdateBlockContent(blockID string, patch map[string]any) error {
	s.mu.Lock()
	m, b := s.handbook.FindBlock(blockID)
	if b == nil {
		s.mu.Unlock()
		return nil
	}
	if err := b.MergeContent(patch); err != nil {
		s.mu.Unlock()
		return err
	}
	s.handbook.Touch(m.ID, s.now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// MoveBlock swaps the block with its neighbor in the given direction
// ("up" or "down"). At the boundary it is a no-op.
func (s *Store) MoveBlock(moduleID, blockID, direction string) error {
	if direction != "up" && direction != "down" {
		return &ValidationError{Field: "direction", Reason: fmt.Sprintf("must be %q or %q, got %q", "up", "down", direction)}
	}
	s.mu.Lock()
	m := s.handbook.Module(moduleID)
	if m == nil {
		s.mu.Unlock()
		return &NotFoundError{Kind: "module", ID: moduleID}
	}
	_, idx := m.Block(blockID)
	if idx < 0 {
		s.mu.Unlock()
		return &NotFoundError{Kind: "block", ID: blockID}
	}
	swap := idx - 1
	if direction == "down" {
		swap = idx + 1
	}
	if swap < 0 || swap >= len(m.Blocks) {
		s.mu.Unlock()
		return nil
	}
	m.Blocks[idx], m.Blocks[swap] = m.Blocks[swap], m.Blocks[idx]
	s.handbook.Touch(moduleID, s.now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// DuplicateBlock inserts a deep copy with a fresh id immediately after the
// original.
func (s *Store) DuplicateBlock(moduleID, blockID string) (*Block, error) {
	s.mu.Lock()
	m := s.handbook.Module(moduleID)
	if m == nil {
		s.mu.Unlock()
		return nil, &NotFoundError{Kind: "module", ID: moduleID}
	}
	orig, idx := m.Block(blockID)
	if orig == nil {
		s.mu.Unlock()
		return nil, &NotFoundError{Kind: "block", ID: blockID}
	}
	dup := orig.Duplicate()
	m.Blocks = append(m.Blocks, nil)
	copy(m.Blocks[idx+2:], m.Blocks[idx+1:])
	m.Blocks[idx+1] = dup
	s.handbook.Touch(moduleID, s.now())
	result := dup.Clone()
	s.mu.Unlock()
	s.changed()
	return result, nil
}

// DeleteBlock removes a block. Modules may hold zero blocks, so there is no
// minimum-block invariant here.
func (s *Store) DeleteBlock(moduleID, blockID string) error {
	s.mu.Lock()
	m := s.handbook.Module(moduleID)
	if m == nil {
		s.mu.Unlock()
		return &NotFoundError{Kind: "module", ID: moduleID}
	}
	_, idx := m.Block(blockID)
	if idx < 0 {
		s.mu.Unlock()
		return &NotFoundError{Kind: "block", ID: blockID}
	}
	m.Blocks = append(m.Blocks[:idx], m.Blocks[idx+1:]...)
	if s.activeBlockID == blockID {
		s.activeBlockID = ""
	}
	s.handbook.Touch(moduleID, s.now())
	s.mu.Unlock()
	s.changed()
	return nil
}

// SetActiveModule changes the selection. Selection is editor state, not
// document content, so it is never persisted. Async completions call this
// with possibly-stale ids; an id that no longer resolves leaves the
// selection unchanged.
func (s *Store) SetActiveModule(moduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handbook.Module(moduleID) == nil {
		return &NotFoundError{Kind: "module", ID: moduleID}
	}
	s.activeModuleID = moduleID
	s.activeBlockID = ""
	return nil
}

// SetActiveBlock changes the block selection, re-resolving the owning
// module so a stale reference cannot point selection at a removed block.
func (s *Store) SetActiveBlock(blockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blockID == "" {
		s.activeBlockID = ""
		return nil
	}
	m, b := s.handbook.FindBlock(blockID)
	if b == nil {
		return &NotFoundError{Kind: "block", ID: blockID}
	}
	s.activeModuleID = m.ID
	s.activeBlockID = blockID
	return nil
}
