package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // base images may arrive as JPEG
	"image/png"
	"strings"

	"github.com/h2non/filetype"

	"github.com/gogpu/rmask"
)

// ErrInvalidDataURL is returned when a string is not a base64 image data
// URL.
var ErrInvalidDataURL = errors.New("codec: invalid image data URL")

const dataURLPrefix = "data:"

// DataURL wraps encoded image bytes in a base64 data URL. The media type
// is sniffed from the content, PNG when it cannot be determined.
func DataURL(data []byte) string {
	mime := "image/png"
	if kind, err := filetype.Match(data); err == nil && filetype.IsImage(data) {
		mime = kind.MIME.Value
	}
	return dataURLPrefix + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL returns the decoded payload of a base64 image data URL.
// The payload itself must sniff as an image, whatever the header claims.
func ParseDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return nil, ErrInvalidDataURL
	}
	header, payload, ok := strings.Cut(s[len(dataURLPrefix):], ",")
	if !ok || !strings.HasSuffix(header, ";base64") || !strings.HasPrefix(header, "image/") {
		return nil, ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%w: payload is not an image", ErrInvalidDataURL)
	}
	return data, nil
}

// EncodePixmap encodes p as a PNG data URL.
func EncodePixmap(p *rmask.Pixmap) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.NRGBA()); err != nil {
		return "", fmt.Errorf("codec: encode png: %w", err)
	}
	return DataURL(buf.Bytes()), nil
}

// DecodePixmap decodes an image data URL into a pixmap. PNG content is
// restored byte for byte.
func DecodePixmap(s string) (*rmask.Pixmap, error) {
	data, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("codec: decode image: %w", err)
	}
	return rmask.FromImage(img), nil
}
