package handbook

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// BlockType identifies the content variant a block carries.
type BlockType string

const (
	BlockText   BlockType = "text"
	BlockImage  BlockType = "image"
	BlockQuote  BlockType = "quote"
	BlockVideo  BlockType = "video"
	BlockButton BlockType = "button"
	BlockQuiz   BlockType = "quiz"
	BlockNotice BlockType = "notice"
)

// BlockTypes lists every known block type in a stable order.
var BlockTypes = []BlockType{
	BlockText,
	BlockImage,
	BlockQuote,
	BlockVideo,
	BlockButton,
	BlockQuiz,
	BlockNotice,
}

// Known reports whether t is a block type this version understands.
func (t BlockType) Known() bool {
	for _, k := range BlockTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Content is the closed union of per-type block payloads.
// Only the content types in this package implement it.
type Content interface {
	blockType() BlockType
}

// TextContent holds pre-sanitized rich markup. The editor's rich-text
// surface is responsible for sanitization; renderers emit Text verbatim.
type TextContent struct {
	Text string `json:"text"`
}

// ImageContent references a hosted image plus its accessible description.
type ImageContent struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption,omitempty"`
}

// QuoteContent holds a pull quote with an optional attribution.
type QuoteContent struct {
	Quote  string `json:"quote"`
	Author string `json:"author,omitempty"`
}

// VideoContent holds a video URL as entered by the author. Share links of
// recognized providers are resolved to embed URLs at render time.
type VideoContent struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// ButtonContent renders as a link styled as an action control.
type ButtonContent struct {
	ButtonText string `json:"buttonText"`
	ButtonURL  string `json:"buttonUrl"`
}

// QuizOption is a single selectable answer.
type QuizOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuizContent holds a single-answer question. Exactly one option must be
// marked correct; selection behavior is defined by the consuming renderer.
type QuizContent struct {
	Question          string       `json:"question"`
	Options           []QuizOption `json:"options"`
	FeedbackCorrect   string       `json:"feedbackCorrect,omitempty"`
	FeedbackIncorrect string       `json:"feedbackIncorrect,omitempty"`
}

// NoticeContent is a highlighted callout.
type NoticeContent struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
	Kind  string `json:"kind,omitempty"` // info, warning, tip
}

// UnknownContent preserves the raw payload of a block type this version
// does not understand. Renderers show a placeholder for it.
type UnknownContent struct {
	Raw json.RawMessage `json:"-"`
}

func (TextContent) blockType() BlockType    { return BlockText }
func (ImageContent) blockType() BlockType   { return BlockImage }
func (QuoteContent) blockType() BlockType   { return BlockQuote }
func (VideoContent) blockType() BlockType   { return BlockVideo }
func (ButtonContent) blockType() BlockType  { return BlockButton }
func (QuizContent) blockType() BlockType    { return BlockQuiz }
func (NoticeContent) blockType() BlockType  { return BlockNotice }
func (UnknownContent) blockType() BlockType { return "" }

// Block is one typed unit of content inside a module. The ID is immutable
// once created and unique within a handbook.
type Block struct {
	ID      string
	Type    BlockType
	Content Content
}

// NewBlock creates a block of the given type with default content and a
// fresh id.
func NewBlock(t BlockType) *Block {
	return &Block{
		ID:      uuid.NewString(),
		Type:    t,
		Content: DefaultContent(t),
	}
}

// DefaultContent returns the content a freshly added block of type t starts
// with. Unknown types get an empty raw payload.
func DefaultContent(t BlockType) Content {
	switch t {
	case BlockText:
		return TextContent{Text: "<p>Start writing...</p>"}
	case BlockImage:
		return ImageContent{}
	case BlockQuote:
		return QuoteContent{}
	case BlockVideo:
		return VideoContent{}
	case BlockButton:
		return ButtonContent{ButtonText: "Learn more"}
	case BlockQuiz:
		return QuizContent{
			Question: "New question",
			Options: []QuizOption{
				{ID: uuid.NewString(), Text: "Option A", IsCorrect: true},
				{ID: uuid.NewString(), Text: "Option B"},
			},
		}
	case BlockNotice:
		return NoticeContent{Kind: "info"}
	default:
		return UnknownContent{Raw: json.RawMessage("{}")}
	}
}

// Clone returns a deep copy of the block, keeping the same id.
func (b *Block) Clone() *Block {
	dup := &Block{ID: b.ID, Type: b.Type}
	switch c := b.Content.(type) {
	case QuizContent:
		opts := make([]QuizOption, len(c.Options))
		copy(opts, c.Options)
		c.Options = opts
		dup.Content = c
	case UnknownContent:
		raw := make(json.RawMessage, len(c.Raw))
		copy(raw, c.Raw)
		dup.Content = UnknownContent{Raw: raw}
	default:
		// Remaining content types are flat value structs.
		dup.Content = c
	}
	return dup
}

// Duplicate returns a deep copy with a freshly generated id.
func (b *Block) Duplicate() *Block {
	dup := b.Clone()
	dup.ID = uuid.NewString()
	return dup
}

// Validate checks the block's structural invariants.
func (b *Block) Validate() error {
	if b.ID == "" {
		return &ValidationError{Field: "block.id", Reason: "id is required"}
	}
	if b.Content == nil {
		return &ValidationError{Field: "block.content", Reason: fmt.Sprintf("block %s has no content", b.ID)}
	}
	if q, ok := b.Content.(QuizContent); ok {
		correct := 0
		for _, opt := range q.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if len(q.Options) > 0 && correct != 1 {
			return &ValidationError{
				Field:  "block.content.options",
				Reason: fmt.Sprintf("quiz %s must have exactly one correct option, found %d", b.ID, correct),
			}
		}
	}
	return nil
}

type blockEnvelope struct {
	ID      string          `json:"id"`
	Type    BlockType       `json:"type"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes the block as a {id, type, content} envelope.
func (b *Block) MarshalJSON() ([]byte, error) {
	var content any = b.Content
	if u, ok := b.Content.(UnknownContent); ok {
		content = u.Raw
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("block %s: encode content: %w", b.ID, err)
	}
	return json.Marshal(blockEnvelope{ID: b.ID, Type: b.Type, Content: raw})
}

// UnmarshalJSON decodes the envelope, selecting the content struct from the
// type tag. Unknown types keep their raw payload so a round-trip does not
// lose data.
func (b *Block) UnmarshalJSON(data []byte) error {
	var env blockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	b.ID = env.ID
	b.Type = env.Type
	if len(env.Content) == 0 {
		env.Content = json.RawMessage("{}")
	}
	content, err := decodeContent(env.Type, env.Content)
	if err != nil {
		return err
	}
	b.Content = content
	return nil
}

func decodeContent(t BlockType, raw json.RawMessage) (Content, error) {
	var (
		content Content
		err     error
	)
	switch t {
	case BlockText:
		var c TextContent
		err = json.Unmarshal(raw, &c)
		content = c
	case BlockImage:
		var c ImageContent
		err = json.Unmarshal(raw, &c)
		content = c
	case BlockQuote:
		var c QuoteContent
		err = json.Unmarshal(raw, &c)
		content = c
	case BlockVideo:
		var c VideoContent
		err = json.Unmarshal(raw, &c)
		content = c
	case BlockButton:
		var c ButtonContent
		err = json.Unmarshal(raw, &c)
		content = c
	case BlockQuiz:
		var c QuizContent
		err = json.Unmarshal(raw, &c)
		content = c
	case BlockNotice:
		var c NoticeContent
		err = json.Unmarshal(raw, &c)
		content = c
	default:
		content = UnknownContent{Raw: raw}
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", t, err)
	}
	return content, nil
}

// MergeContent shallow-merges patch fields into the block's content. Fields
// not present in the patch keep their current values; fields that do not
// belong to the block's type are rejected.
func (b *Block) MergeContent(patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	if _, ok := b.Content.(UnknownContent); ok {
		return &ValidationError{Field: "block.type", Reason: fmt.Sprintf("cannot edit unknown block type %q", b.Type)}
	}
	current, err := json.Marshal(b.Content)
	if err != nil {
		return fmt.Errorf("block %s: encode content: %w", b.ID, err)
	}
	merged := make(map[string]any)
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("block %s: decode content: %w", b.ID, err)
	}
	for k, v := range patch {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("block %s: encode merged content: %w", b.ID, err)
	}
	content, err := strictDecodeContent(b.Type, raw)
	if err != nil {
		return &ValidationError{
			Field:  "block.content",
			Reason: fmt.Sprintf("patch does not fit %s content: %v", b.Type, err),
		}
	}
	b.Content = content
	return nil
}

// strictDecodeContent rejects fields that belong to a different block type.
func strictDecodeContent(t BlockType, raw json.RawMessage) (Content, error) {
	decode := func(dst any) error {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(dst)
	}
	switch t {
	case BlockText:
		var c TextContent
		err := decode(&c)
		return c, err
	case BlockImage:
		var c ImageContent
		err := decode(&c)
		return c, err
	case BlockQuote:
		var c QuoteContent
		err := decode(&c)
		return c, err
	case BlockVideo:
		var c VideoContent
		err := decode(&c)
		return c, err
	case BlockButton:
		var c ButtonContent
		err := decode(&c)
		return c, err
	case BlockQuiz:
		var c QuizContent
		err := decode(&c)
		return c, err
	case BlockNotice:
		var c NoticeContent
		err := decode(&c)
		return c, err
	default:
		return nil, fmt.Errorf("unknown block type %q", t)
	}
}
