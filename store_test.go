package handbook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestStore(opts ...StoreOption) *Store {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]StoreOption{WithClock(func() time.Time { return base })}, opts...)
	return NewStore(opts...)
}

func TestNewStoreSeedsSingleModule(t *testing.T) {
	s := newTestStore()
	snap := s.Snapshot()
	if len(snap.Modules) != 1 {
		t.Fatalf("expected 1 seeded module, got %d", len(snap.Modules))
	}
	if snap.Modules[0].Title != "Getting started" {
		t.Errorf("unexpected seed module title %q", snap.Modules[0].Title)
	}
	if s.ActiveModuleID() != snap.Modules[0].ID {
		t.Errorf("active module should be the seeded module")
	}
}

func TestAddModuleAppends(t *testing.T) {
	s := newTestStore()
	m, err := s.AddModule("Safety procedures")
	if err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	if m.Slug != "safety-procedures" {
		t.Errorf("slug = %q, want safety-procedures", m.Slug)
	}
	snap := s.Snapshot()
	if len(snap.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(snap.Modules))
	}
	if snap.Modules[1].ID != m.ID {
		t.Errorf("new module should be appended at the end")
	}
}

func TestAddModuleRejectsDuplicateSlug(t *testing.T) {
	s := newTestStore()
	if _, err := s.AddModule("Onboarding"); err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	_, err := s.AddModule("Onboarding!")
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError for duplicate slug, got %v", err)
	}
}

func TestAddModuleTitleBounds(t *testing.T) {
	s := newTestStore()
	for _, title := range []string{"ab", strings.Repeat("x", 81), "  a  "} {
		if _, err := s.AddModule(title); !IsValidation(err) {
			t.Errorf("AddModule(%q): expected ValidationError, got %v", title, err)
		}
	}
}

func TestDeleteLastModuleFails(t *testing.T) {
	s := newTestStore()
	snap := s.Snapshot()
	err := s.DeleteModule(snap.Modules[0].ID)
	if !IsInvariant(err) {
		t.Fatalf("expected InvariantViolation deleting the last module, got %v", err)
	}
	if len(s.Snapshot().Modules) != 1 {
		t.Errorf("module count changed after rejected delete")
	}
}

func TestDeleteActiveModuleRetargetsSelection(t *testing.T) {
	s := newTestStore()
	first := s.Snapshot().Modules[0]
	second, err := s.AddModule("Module two")
	if err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	if err := s.SetActiveModule(second.ID); err != nil {
		t.Fatalf("SetActiveModule: %v", err)
	}
	if err := s.DeleteModule(second.ID); err != nil {
		t.Fatalf("DeleteModule: %v", err)
	}
	if got := s.ActiveModuleID(); got != first.ID {
		t.Errorf("active module = %s, want first module %s", got, first.ID)
	}
}

func TestRenameModuleUpdatesSlug(t *testing.T) {
	s := newTestStore()
	m := s.Snapshot().Modules[0]
	if err := s.RenameModule(m.ID, "Fire Safety 101"); err != nil {
		t.Fatalf("RenameModule: %v", err)
	}
	got := s.Snapshot().Modules[0]
	if got.Slug != "fire-safety-101" {
		t.Errorf("slug = %q, want fire-safety-101", got.Slug)
	}
	if got.Version != m.Version+1 {
		t.Errorf("version = %d, want %d", got.Version, m.Version+1)
	}
}

func TestReorderModulesSwaps(t *testing.T) {
	s := newTestStore()
	if _, err := s.AddModule("Second"); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()
	s.ReorderModules(0, 1)
	after := s.Snapshot()
	if after.Modules[0].ID != before.Modules[1].ID || after.Modules[1].ID != before.Modules[0].ID {
		t.Errorf("modules were not swapped")
	}

	// Out-of-range indices must leave order untouched.
	s.ReorderModules(0, 5)
	if s.Snapshot().Modules[0].ID != after.Modules[0].ID {
		t.Errorf("out-of-range reorder changed module order")
	}
}

func TestAddAndDeleteBlockRoundTrip(t *testing.T) {
	s := newTestStore()
	moduleID := s.ActiveModuleID()
	b, err := s.AddBlock(moduleID, BlockText)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if len(s.Snapshot().Modules[0].Blocks) != 1 {
		t.Fatalf("block was not added")
	}
	if err := s.DeleteBlock(moduleID, b.ID); err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	if len(s.Snapshot().Modules[0].Blocks) != 0 {
		t.Errorf("block was not removed")
	}
}

func TestInsertBlockAtPosition(t *testing.T) {
	s := newTestStore()
	moduleID := s.ActiveModuleID()
	first, _ := s.AddBlock(moduleID, BlockText)
	second, _ := s.AddBlock(moduleID, BlockQuote)
	inserted, err := s.InsertBlock(moduleID, BlockNotice, 1)
	if err != nil {
		t.Fatalf("InsertBlock: %v", err)
	}
	blocks := s.Snapshot().Modules[0].Blocks
	ids := []string{first.ID, inserted.ID, second.ID}
	for i, want := range ids {
		if blocks[i].ID != want {
			t.Fatalf("blocks[%d] = %s, want %s", i, blocks[i].ID, want)
		}
	}
}

func TestMoveBlockBoundaryIsNoOp(t *testing.T) {
	s := newTestStore()
	moduleID := s.ActiveModuleID()
	a, _ := s.AddBlock(moduleID, BlockText)
	b, _ := s.AddBlock(moduleID, BlockQuote)

	if err := s.MoveBlock(moduleID, a.ID, "up"); err != nil {
		t.Fatalf("MoveBlock at top boundary: %v", err)
	}
	blocks := s.Snapshot().Modules[0].Blocks
	if blocks[0].ID != a.ID {
		t.Errorf("moving the first block up changed order")
	}

	if err := s.MoveBlock(moduleID, b.ID, "down"); err != nil {
		t.Fatalf("MoveBlock at bottom boundary: %v", err)
	}
	if s.Snapshot().Modules[0].Blocks[1].ID != b.ID {
		t.Errorf("moving the last block down changed order")
	}

	if err := s.MoveBlock(moduleID, a.ID, "down"); err != nil {
		t.Fatalf("MoveBlock: %v", err)
	}
	blocks = s.Snapshot().Modules[0].Blocks
	if blocks[0].ID != b.ID || blocks[1].ID != a.ID {
		t.Errorf("blocks were not swapped")
	}
}

func TestMoveBlockRejectsBadDirection(t *testing.T) {
	s := newTestStore()
	moduleID := s.ActiveModuleID()
	b, _ := s.AddBlock(moduleID, BlockText)
	if err := s.MoveBlock(moduleID, b.ID, "sideways"); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDuplicateBlockInsertsAfterOriginal(t *testing.T) {
	s := newTestStore()
	moduleID := s.ActiveModuleID()
	orig, _ := s.AddBlock(moduleID, BlockQuiz)
	tail, _ := s.AddBlock(moduleID, BlockText)

	dup, err := s.DuplicateBlock(moduleID, orig.ID)
	if err != nil {
		t.Fatalf("DuplicateBlock: %v", err)
	}
	if dup.ID == orig.ID {
		t.Fatalf("duplicate must get a fresh id")
	}
	blocks := s.Snapshot().Modules[0].Blocks
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[1].ID != dup.ID || blocks[2].ID != tail.ID {
		t.Errorf("duplicate not inserted directly after original")
	}

	// Mutating the duplicate's options must not touch the original.
	dupQuiz := blocks[1].Content.(QuizContent)
	origQuiz := blocks[0].Content.(QuizContent)
	dupQuiz.Options[0].Text = "changed"
	if origQuiz.Options[0].Text == "changed" {
		t.Errorf("duplicate shares option slice with original")
	}
}

func TestUpdateBlockContentMergesPatch(t *testing.T) {
	s := newTestStore()
	moduleID := s.ActiveModuleID()
	b, _ := s.AddBlock(moduleID, BlockImage)
	err := s.UpdateBlockContent(b.ID, map[string]any{"url": "https://example.com/a.png"})
	if err != nil {
		t.Fatalf("UpdateBlockContent: %v", err)
	}
	got := s.Snapshot().Modules[0].Blocks[0].Content.(ImageContent)
	if got.URL != "https://example.com/a.png" {
		t.Errorf("url = %q", got.URL)
	}

	// A second patch on a different field keeps the first one.
	if err := s.UpdateBlockContent(b.ID, map[string]any{"alt": "A diagram"}); err != nil {
		t.Fatalf("UpdateBlockContent: %v", err)
	}
	got = s.Snapshot().Modules[0].Blocks[0].Content.(ImageContent)
	if got.URL != "https://example.com/a.png" || got.Alt != "A diagram" {
		t.Errorf("patch did not merge: %+v", got)
	}
}

func TestUpdateBlockContentRejectsForeignFields(t *testing.T) {
	s := newTestStore()
	moduleID := s.ActiveModuleID()
	b, _ := s.AddBlock(moduleID, BlockImage)
	err := s.UpdateBlockContent(b.ID, map[string]any{"question": "nope"})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError for foreign field, got %v", err)
	}
}

func TestUpdateUnknownBlockIsNoOp(t *testing.T) {
	s := newTestStore()
	if err := s.UpdateBlockContent("gone", map[string]any{"text": "x"}); err != nil {
		t.Fatalf("stale edit should be dropped silently, got %v", err)
	}
}

func TestLoadHandbookRejectsDuplicateBlockIDs(t *testing.T) {
	s := newTestStore()
	before := s.Snapshot()

	now := time.Now()
	h := NewHandbook(now)
	m := h.Modules[0]
	b := NewBlock(BlockText)
	m.Blocks = append(m.Blocks, b, b.Clone())
	err := s.LoadHandbook(h)
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError for duplicate block ids, got %v", err)
	}
	if s.Snapshot().ID != before.ID {
		t.Errorf("rejected load replaced in-memory state")
	}
}

func TestLoadSnapshotJSONRoundTrip(t *testing.T) {
	src := newTestStore()
	moduleID := src.ActiveModuleID()
	if _, err := src.AddBlock(moduleID, BlockQuiz); err != nil {
		t.Fatal(err)
	}
	if err := src.SetTitle("Employee handbook"); err != nil {
		t.Fatal(err)
	}
	blob, err := json.Marshal(src.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	dst := newTestStore()
	if err := dst.LoadSnapshotJSON(blob); err != nil {
		t.Fatalf("LoadSnapshotJSON: %v", err)
	}
	got := dst.Snapshot()
	if got.Title != "Employee handbook" {
		t.Errorf("title = %q", got.Title)
	}
	if _, ok := got.Modules[0].Blocks[0].Content.(QuizContent); !ok {
		t.Errorf("quiz content lost in round trip: %T", got.Modules[0].Blocks[0].Content)
	}
}

func TestSetActiveBlockResolvesOwningModule(t *testing.T) {
	s := newTestStore()
	m2, _ := s.AddModule("Second module")
	b, _ := s.AddBlock(m2.ID, BlockText)

	if err := s.SetActiveBlock(b.ID); err != nil {
		t.Fatalf("SetActiveBlock: %v", err)
	}
	if s.ActiveModuleID() != m2.ID {
		t.Errorf("selecting a block should also select its module")
	}

	if err := s.SetActiveBlock("missing"); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if s.ActiveBlockID() != b.ID {
		t.Errorf("failed selection changed the active block")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newTestStore()
	snap := s.Snapshot()
	snap.Title = "mutated"
	snap.Modules[0].Title = "mutated"
	if s.Snapshot().Title == "mutated" || s.Snapshot().Modules[0].Title == "mutated" {
		t.Errorf("snapshot shares state with the live handbook")
	}
}

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	s := newTestStore()
	var mu sync.Mutex
	calls := 0
	unsubscribe := s.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	if err := s.SetTitle("Subscribed title"); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected 1 notification, got %d", got)
	}

	unsubscribe()
	s.SetDescription("after unsubscribe")
	mu.Lock()
	got = calls
	mu.Unlock()
	if got != 1 {
		t.Errorf("listener called after unsubscribe")
	}
}

type recordingPersister struct {
	mu    sync.Mutex
	saves int
	last  []byte
}

func (p *recordingPersister) Save(ctx context.Context, id string, blob []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	p.last = append([]byte(nil), blob...)
	return nil
}

func (p *recordingPersister) counts() (int, []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves, p.last
}

func TestDebouncedPersistCoalescesWrites(t *testing.T) {
	p := &recordingPersister{}
	s := newTestStore(WithPersister(p, 50*time.Millisecond))

	for i := 0; i < 5; i++ {
		s.SetDescription("rev")
	}
	time.Sleep(200 * time.Millisecond)

	saves, _ := p.counts()
	if saves == 0 {
		t.Fatalf("no persist write after debounce window")
	}
	if saves >= 5 {
		t.Errorf("writes were not coalesced: %d saves for 5 mutations", saves)
	}
}

func TestFlushWritesCurrentState(t *testing.T) {
	p := &recordingPersister{}
	s := newTestStore(WithPersister(p, time.Hour)) // debounce never fires in-test

	if err := s.SetTitle("Flush target"); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	_, blob := p.counts()
	if blob == nil {
		t.Fatalf("flush wrote nothing")
	}
	var h Handbook
	if err := json.Unmarshal(blob, &h); err != nil {
		t.Fatalf("persisted blob is not a handbook: %v", err)
	}
	if h.Title != "Flush target" {
		t.Errorf("persisted title = %q", h.Title)
	}
}

type failingPersister struct{ err error }

func (p failingPersister) Save(context.Context, string, []byte) error { return p.err }

func TestFlushSurfacesPersistError(t *testing.T) {
	s := newTestStore(WithPersister(failingPersister{err: errors.New("disk full")}, time.Hour))
	err := s.Flush()
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}
