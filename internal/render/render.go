// Package render defines the single block-dispatch contract shared by the
// live preview, the offline bundle and the paginated document. Each backend
// implements Handler for its own node type; the dispatch table and per-type
// field semantics live here so the three surfaces cannot drift apart.
package render

import (
	"net/url"
	"strings"

	"github.com/inkforge/handbook"
)

// PlaceholderImageURL is rendered when an image block has no URL yet.
const PlaceholderImageURL = "https://placehold.co/800x450?text=Image"

// Handler renders one output node per block variant. Adding a block type to
// the schema extends this interface, which forces every backend to handle
// the new variant before it compiles again.
type Handler[T any] interface {
	Text(b *handbook.Block, c handbook.TextContent) T
	Image(b *handbook.Block, c handbook.ImageContent) T
	Quote(b *handbook.Block, c handbook.QuoteContent) T
	Video(b *handbook.Block, c handbook.VideoContent) T
	Button(b *handbook.Block, c handbook.ButtonContent) T
	Quiz(b *handbook.Block, c handbook.QuizContent) T
	Notice(b *handbook.Block, c handbook.NoticeContent) T
	Unknown(b *handbook.Block, blockType string) T
}

// Block dispatches on the block's content variant. Unknown variants go to
// the handler's Unknown method; dispatch never panics.
func Block[T any](h Handler[T], b *handbook.Block) T {
	switch c := b.Content.(type) {
	case handbook.TextContent:
		return h.Text(b, c)
	case handbook.ImageContent:
		return h.Image(b, c)
	case handbook.QuoteContent:
		return h.Quote(b, c)
	case handbook.VideoContent:
		return h.Video(b, c)
	case handbook.ButtonContent:
		return h.Button(b, c)
	case handbook.QuizContent:
		return h.Quiz(b, c)
	case handbook.NoticeContent:
		return h.Notice(b, c)
	default:
		return h.Unknown(b, string(b.Type))
	}
}

// ImageURL applies the empty-URL fallback shared by all backends.
func ImageURL(c handbook.ImageContent) string {
	if strings.TrimSpace(c.URL) == "" {
		return PlaceholderImageURL
	}
	return c.URL
}

// EmbedURL resolves known-provider share links to an embeddable player URL.
// Only the YouTube family is recognized; every other URL passes through
// unchanged, which may fail to render downstream. That is accepted degraded
// behavior, not something to sanitize here.
func EmbedURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
		if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok && rest != "" {
			return "https://www.youtube.com/embed/" + firstSegment(rest)
		}
	case "youtu.be":
		if id := firstSegment(strings.TrimPrefix(u.Path, "/")); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
	}
	return raw
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

// OptionLetter returns the letter label for option index i (A, B, ... Z,
// then AA, AB...).
func OptionLetter(i int) string {
	letter := string(rune('A' + i%26))
	if i >= 26 {
		return OptionLetter(i/26-1) + letter
	}
	return letter
}
