package preview

import (
	"strings"
	"testing"
	"time"

	"github.com/inkforge/handbook"
)

func twoModuleHandbook(t *testing.T) *handbook.Handbook {
	t.Helper()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	h := handbook.NewHandbook(now)
	h.Title = "Field guide"
	second := handbook.NewModule("Advanced topics", now)
	second.Blocks = append(second.Blocks, handbook.NewBlock(handbook.BlockNotice))
	h.Modules = append(h.Modules, second)
	return h
}

func TestActiveModeRendersOnlyActiveSection(t *testing.T) {
	h := twoModuleHandbook(t)
	got := New().Document(h, h.Modules[1].ID, ModeActiveModule)
	if !strings.Contains(got, "Advanced topics") {
		t.Errorf("active section missing")
	}
	if strings.Contains(got, "Getting started") {
		t.Errorf("inactive section leaked into active-module render")
	}
}

func TestAllModeRendersEverySection(t *testing.T) {
	h := twoModuleHandbook(t)
	got := New().Document(h, h.Modules[0].ID, ModeAllModules)
	if !strings.Contains(got, "Getting started") || !strings.Contains(got, "Advanced topics") {
		t.Errorf("all-modules render missing a section")
	}
}

func TestUnknownActiveModuleFallsBackToFirst(t *testing.T) {
	h := twoModuleHandbook(t)
	got := New().Document(h, "no-such-module", ModeActiveModule)
	if !strings.Contains(got, "Getting started") {
		t.Errorf("fallback to the first module did not happen")
	}
}

func TestActiveModuleThemeOverrideApplies(t *testing.T) {
	h := twoModuleHandbook(t)
	h.Modules[1].Theme = &handbook.Theme{ColorPrimary: "#336699"}
	got := New().Document(h, h.Modules[1].ID, ModeActiveModule)
	if !strings.Contains(got, "--color-primary: #336699") {
		t.Errorf("module theme override not applied:\n%s", got)
	}
}

func TestAllModeScopesModuleThemeOverride(t *testing.T) {
	h := twoModuleHandbook(t)
	h.Modules[1].Theme = &handbook.Theme{ColorPrimary: "#336699"}
	got := New().Document(h, h.Modules[0].ID, ModeAllModules)
	if !strings.Contains(got, "#module-"+h.Modules[1].Slug+" {") {
		t.Fatalf("no scoped variable block for the overriding section:\n%s", got)
	}
	if !strings.Contains(got, "--color-primary: #336699") {
		t.Errorf("module theme override missing from all-modules render")
	}
	if !strings.Contains(got, ":root {") {
		t.Errorf("handbook-level variables missing")
	}
}

func TestEmptyHandbookRendersPlaceholder(t *testing.T) {
	h := twoModuleHandbook(t)
	h.Modules = nil
	got := New().Document(h, "", ModeActiveModule)
	if !strings.Contains(got, "no content yet") {
		t.Errorf("empty state placeholder missing")
	}
	if !strings.Contains(got, "<title>Field guide</title>") {
		t.Errorf("page chrome missing for empty handbook")
	}
}

func TestDocumentIsCompletePage(t *testing.T) {
	h := twoModuleHandbook(t)
	got := New().Document(h, h.Modules[0].ID, ModeActiveModule)
	for _, want := range []string{"<!DOCTYPE html>", "<style>", ":root {", "</html>"} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q", want)
		}
	}
}
