package handbook

import (
	"encoding/json"
	"testing"
)

func TestBlockEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content Content
	}{
		{"text", TextContent{Text: "<p>Hello</p>"}},
		{"image", ImageContent{URL: "https://img.example/x.png", Alt: "An x", Caption: "fig 1"}},
		{"quote", QuoteContent{Quote: "Measure twice.", Author: "Anon"}},
		{"video", VideoContent{URL: "https://youtu.be/abc123"}},
		{"button", ButtonContent{ButtonText: "Go", ButtonURL: "https://example.com"}},
		{"notice", NoticeContent{Title: "Heads up", Text: "Mind the gap", Kind: "warning"}},
		{"quiz", QuizContent{
			Question: "Pick one",
			Options: []QuizOption{
				{ID: "o1", Text: "Right", IsCorrect: true},
				{ID: "o2", Text: "Wrong"},
			},
			FeedbackCorrect: "Nice",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBlock(tt.content.blockType())
			b.Content = tt.content
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got Block
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.ID != b.ID || got.Type != b.Type {
				t.Errorf("envelope fields lost: %+v", got)
			}
		})
	}
}

func TestUnknownBlockTypePreservesPayload(t *testing.T) {
	in := []byte(`{"id":"b1","type":"hologram","content":{"depth":3,"spin":"left"}}`)
	var b Block
	if err := json.Unmarshal(in, &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	u, ok := b.Content.(UnknownContent)
	if !ok {
		t.Fatalf("content is %T, want UnknownContent", b.Content)
	}
	out, err := json.Marshal(&b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var env struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "hologram" {
		t.Errorf("type tag lost: %q", env.Type)
	}
	var payload map[string]any
	if err := json.Unmarshal(env.Content, &payload); err != nil {
		t.Fatalf("payload not preserved: %v (raw %s)", err, u.Raw)
	}
	if payload["spin"] != "left" {
		t.Errorf("payload field lost: %v", payload)
	}
}

func TestMergeContentKeepsUnpatchedFields(t *testing.T) {
	b := NewBlock(BlockButton)
	b.Content = ButtonContent{ButtonText: "Sign up", ButtonURL: "https://a.example"}
	if err := b.MergeContent(map[string]any{"buttonUrl": "https://b.example"}); err != nil {
		t.Fatalf("MergeContent: %v", err)
	}
	got := b.Content.(ButtonContent)
	if got.ButtonText != "Sign up" || got.ButtonURL != "https://b.example" {
		t.Errorf("merge result: %+v", got)
	}
}

func TestMergeContentRejectsForeignField(t *testing.T) {
	b := NewBlock(BlockText)
	err := b.MergeContent(map[string]any{"buttonUrl": "https://x"})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestMergeContentRejectsUnknownType(t *testing.T) {
	var b Block
	if err := json.Unmarshal([]byte(`{"id":"b1","type":"hologram","content":{}}`), &b); err != nil {
		t.Fatal(err)
	}
	if err := b.MergeContent(map[string]any{"depth": 4}); !IsValidation(err) {
		t.Fatalf("expected ValidationError editing unknown block, got %v", err)
	}
}

func TestQuizValidateExactlyOneCorrect(t *testing.T) {
	mk := func(corrects ...bool) *Block {
		q := QuizContent{Question: "Q"}
		for i, c := range corrects {
			q.Options = append(q.Options, QuizOption{ID: string(rune('a' + i)), Text: "opt", IsCorrect: c})
		}
		b := NewBlock(BlockQuiz)
		b.Content = q
		return b
	}
	if err := mk(true, false).Validate(); err != nil {
		t.Errorf("one correct option should validate: %v", err)
	}
	if err := mk(false, false).Validate(); !IsValidation(err) {
		t.Errorf("zero correct options should fail, got %v", err)
	}
	if err := mk(true, true).Validate(); !IsValidation(err) {
		t.Errorf("two correct options should fail, got %v", err)
	}
}

func TestDuplicateDeepCopiesQuizOptions(t *testing.T) {
	b := NewBlock(BlockQuiz)
	dup := b.Duplicate()
	if dup.ID == b.ID {
		t.Fatalf("duplicate kept the original id")
	}
	dupQuiz := dup.Content.(QuizContent)
	dupQuiz.Options[0].Text = "mutated"
	if b.Content.(QuizContent).Options[0].Text == "mutated" {
		t.Errorf("duplicate shares options with original")
	}
}

func TestDefaultContentCoversEveryKnownType(t *testing.T) {
	for _, bt := range BlockTypes {
		c := DefaultContent(bt)
		if _, ok := c.(UnknownContent); ok {
			t.Errorf("DefaultContent(%s) fell through to UnknownContent", bt)
		}
		if c.blockType() != bt {
			t.Errorf("DefaultContent(%s) returned %s content", bt, c.blockType())
		}
	}
}
