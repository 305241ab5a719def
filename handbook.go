// Package handbook provides the core document model and editing store for
// building handbooks out of modules of typed content blocks, plus the
// snapshot contract consumed by the preview and export renderers.
package handbook

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Title length bounds for modules and handbooks.
const (
	TitleMinLen = 3
	TitleMaxLen = 80
)

// Handbook is the top-level document. It owns all modules; modules have no
// existence outside a handbook.
type Handbook struct {
	ID          string    `json:"handbookId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Theme       Theme     `json:"theme"`
	Modules     []*Module `json:"modules"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Module is a named, ordered section of a handbook. Block order is the
// rendering and export order.
type Module struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Description string         `json:"description,omitempty"`
	Theme       *Theme         `json:"theme,omitempty"` // overrides the handbook theme field-by-field
	Layout      LayoutSettings `json:"layoutSettings"`
	Blocks      []*Block       `json:"blocks"`
	Version     int            `json:"version"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Theme holds author-chosen colors, fonts and optional cover images. Colors
// are hex or hsl() strings; fonts are named tokens resolved by the theme
// resolver.
type Theme struct {
	ColorPrimary    string `json:"colorPrimary,omitempty"`
	ColorBackground string `json:"colorBackground,omitempty"`
	ColorAccent     string `json:"colorAccent,omitempty"`
	FontHeading     string `json:"fontHeading,omitempty"`
	FontBody        string `json:"fontBody,omitempty"`
	Cover           string `json:"cover,omitempty"`     // data URI or remote URL
	BackCover       string `json:"backCover,omitempty"` // data URI or remote URL
}

// LayoutSettings is purely presentational; the store never validates
// against it.
type LayoutSettings struct {
	ContainerWidth string `json:"containerWidth"` // standard, large, full
	SectionSpacing string `json:"sectionSpacing"` // compact, standard, comfortable
	NavigationType string `json:"navigationType"` // top, sidebar, bottom
}

// DefaultLayout returns the layout a new module starts with.
func DefaultLayout() LayoutSettings {
	return LayoutSettings{
		ContainerWidth: "standard",
		SectionSpacing: "standard",
		NavigationType: "top",
	}
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NewModule creates an empty module from a title. The title is assumed
// validated by the caller.
func NewModule(title string, now time.Time) *Module {
	return &Module{
		ID:        uuid.NewString(),
		Title:     title,
		Slug:      Slugify(title),
		Layout:    DefaultLayout(),
		Blocks:    make([]*Block, 0),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewHandbook creates a handbook with a single default module, satisfying
// the at-least-one-module invariant from the start.
func NewHandbook(now time.Time) *Handbook {
	return &Handbook{
		ID:        uuid.NewString(),
		Title:     "Untitled handbook",
		Theme:     Theme{},
		Modules:   []*Module{NewModule("Getting started", now)},
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the handbook. Snapshots handed to renderers
// and exports are clones; mutating them never touches the live document.
func (h *Handbook) Clone() *Handbook {
	dup := *h
	dup.Modules = make([]*Module, len(h.Modules))
	for i, m := range h.Modules {
		dup.Modules[i] = m.Clone()
	}
	return &dup
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	dup := *m
	if m.Theme != nil {
		theme := *m.Theme
		dup.Theme = &theme
	}
	dup.Blocks = make([]*Block, len(m.Blocks))
	for i, b := range m.Blocks {
		dup.Blocks[i] = b.Clone()
	}
	return &dup
}

// Module returns the module with the given id, or nil.
func (h *Handbook) Module(id string) *Module {
	for _, m := range h.Modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// FindBlock locates a block anywhere in the handbook and returns its owning
// module. Both are nil when the id is unknown.
func (h *Handbook) FindBlock(blockID string) (*Module, *Block) {
	for _, m := range h.Modules {
		for _, b := range m.Blocks {
			if b.ID == blockID {
				return m, b
			}
		}
	}
	return nil, nil
}

// Block returns the block with the given id inside this module, along with
// its index, or (nil, -1).
func (m *Module) Block(id string) (*Block, int) {
	for i, b := range m.Blocks {
		if b.ID == id {
			return b, i
		}
	}
	return nil, -1
}

// ValidateTitle checks the module/handbook title length bounds.
func ValidateTitle(title string) error {
	n := len(strings.TrimSpace(title))
	if n < TitleMinLen || n > TitleMaxLen {
		return &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("length must be between %d and %d characters, got %d", TitleMinLen, TitleMaxLen, n),
		}
	}
	return nil
}

// Validate checks the whole document: required fields, title bounds, slug
// and id uniqueness, and per-block invariants. Snapshots failing validation
// are rejected before they replace any in-memory state.
func (h *Handbook) Validate() error {
	if h.ID == "" {
		return &ValidationError{Field: "handbookId", Reason: "id is required"}
	}
	if len(h.Modules) == 0 {
		return &ValidationError{Field: "modules", Reason: "a handbook must contain at least one module"}
	}
	moduleIDs := make(map[string]bool, len(h.Modules))
	slugs := make(map[string]bool, len(h.Modules))
	blockIDs := make(map[string]bool)
	for _, m := range h.Modules {
		if m.ID == "" {
			return &ValidationError{Field: "module.id", Reason: fmt.Sprintf("module %q has no id", m.Title)}
		}
		if moduleIDs[m.ID] {
			return &ValidationError{Field: "module.id", Reason: fmt.Sprintf("duplicate module id %s", m.ID)}
		}
		moduleIDs[m.ID] = true
		if err := ValidateTitle(m.Title); err != nil {
			return err
		}
		slug := m.Slug
		if slug == "" {
			slug = Slugify(m.Title)
		}
		if slugs[slug] {
			return &ValidationError{Field: "module.slug", Reason: fmt.Sprintf("duplicate slug %q", slug)}
		}
		slugs[slug] = true
		for _, b := range m.Blocks {
			if err := b.Validate(); err != nil {
				return err
			}
			if blockIDs[b.ID] {
				return &ValidationError{Field: "block.id", Reason: fmt.Sprintf("duplicate block id %s", b.ID)}
			}
			blockIDs[b.ID] = true
		}
	}
	return nil
}

// Touch refreshes the handbook timestamp and, when a module is named, that
// module's timestamp and version.
func (h *Handbook) Touch(moduleID string, now time.Time) {
	h.UpdatedAt = now
	if moduleID == "" {
		return
	}
	if m := h.Module(moduleID); m != nil {
		m.UpdatedAt = now
		m.Version++
	}
}
