package pdfdoc

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// decodeDataURI parses a data:image/...;base64 URI into raw bytes and the
// image-type tag gofpdf expects.
func decodeDataURI(src string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(src, "data:image/")
	if !ok {
		return nil, "", fmt.Errorf("not an image data URI")
	}
	semi := strings.IndexByte(rest, ';')
	comma := strings.IndexByte(rest, ',')
	if semi < 0 || comma < 0 || comma < semi {
		return nil, "", fmt.Errorf("malformed data URI")
	}
	subtype := rest[:semi]
	if rest[semi+1:comma] != "base64" {
		return nil, "", fmt.Errorf("unsupported data URI encoding")
	}
	var kind string
	switch strings.ToLower(subtype) {
	case "png":
		kind = "PNG"
	case "jpeg", "jpg":
		kind = "JPG"
	case "gif":
		kind = "GIF"
	default:
		return nil, "", fmt.Errorf("unsupported image type %q", subtype)
	}
	data, err := base64.StdEncoding.DecodeString(rest[comma+1:])
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 image: %w", err)
	}
	return data, kind, nil
}

func imageOpts() gofpdf.ImageOptions {
	return gofpdf.ImageOptions{}
}
