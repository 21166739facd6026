package saves

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"unicode/utf16"
)

// ErrNotPNG is returned for data that is not a well-formed PNG stream.
var ErrNotPNG = errors.New("saves: not a PNG stream")

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

const (
	chunkHeaderSize = 8 // length + type
	chunkCRCSize    = 4
	maxKeywordLen   = 79
)

type chunk struct {
	typ  string
	data []byte
}

// readChunks splits a PNG stream into its chunks, checking every CRC.
func readChunks(data []byte) ([]chunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, ErrNotPNG
	}
	var chunks []chunk
	pos := len(pngSignature)
	for pos < len(data) {
		if len(data)-pos < chunkHeaderSize+chunkCRCSize {
			return nil, fmt.Errorf("%w: truncated chunk at %d", ErrNotPNG, pos)
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		end := pos + chunkHeaderSize + n
		if n < 0 || end+chunkCRCSize > len(data) {
			return nil, fmt.Errorf("%w: chunk at %d overruns stream", ErrNotPNG, pos)
		}
		typ := string(data[pos+4 : pos+8])
		body := data[pos+8 : end]
		want := binary.BigEndian.Uint32(data[end : end+chunkCRCSize])
		if crc32.ChecksumIEEE(data[pos+4:end]) != want {
			return nil, fmt.Errorf("%w: bad CRC in %s chunk", ErrNotPNG, typ)
		}
		chunks = append(chunks, chunk{typ: typ, data: body})
		pos = end + chunkCRCSize
		if typ == "IEND" {
			break
		}
	}
	if len(chunks) == 0 || chunks[0].typ != "IHDR" {
		return nil, fmt.Errorf("%w: missing IHDR", ErrNotPNG)
	}
	return chunks, nil
}

func appendChunk(dst []byte, typ string, data []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(data)))
	start := len(dst)
	dst = append(dst, typ...)
	dst = append(dst, data...)
	return binary.BigEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:]))
}

// AddText returns a copy of a PNG stream with a tEXt chunk holding
// keyword and text inserted after the header. Existing tEXt chunks with
// the same keyword are dropped. The text must be ASCII.
func AddText(png []byte, keyword, text string) ([]byte, error) {
	if keyword == "" || len(keyword) > maxKeywordLen || !isASCII(keyword) {
		return nil, fmt.Errorf("saves: invalid text keyword %q", keyword)
	}
	if !isASCII(text) {
		return nil, errors.New("saves: text chunk content must be ASCII")
	}
	chunks, err := readChunks(png)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, len(keyword)+1+len(text))
	payload = append(payload, keyword...)
	payload = append(payload, 0)
	payload = append(payload, text...)

	out := make([]byte, 0, len(png)+len(payload)+chunkHeaderSize+chunkCRCSize)
	out = append(out, pngSignature...)
	for i, c := range chunks {
		if c.typ == "tEXt" {
			if k, _, ok := bytes.Cut(c.data, []byte{0}); ok && string(k) == keyword {
				continue
			}
		}
		out = appendChunk(out, c.typ, c.data)
		if i == 0 {
			out = appendChunk(out, "tEXt", payload)
		}
	}
	return out, nil
}

// ReadText returns the text of the first tEXt chunk with the given
// keyword.
func ReadText(png []byte, keyword string) (string, bool, error) {
	chunks, err := readChunks(png)
	if err != nil {
		return "", false, err
	}
	for _, c := range chunks {
		if c.typ != "tEXt" {
			continue
		}
		k, v, ok := bytes.Cut(c.data, []byte{0})
		if ok && string(k) == keyword {
			return string(v), true, nil
		}
	}
	return "", false, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// asciiJSON rewrites non-ASCII runes of encoded JSON as \u escapes so the
// result fits a tEXt chunk. Non-ASCII only occurs inside JSON strings,
// where the escape is equivalent.
func asciiJSON(b []byte) []byte {
	if isASCII(string(b)) {
		return b
	}
	out := make([]byte, 0, len(b)+16)
	for _, r := range string(b) {
		switch {
		case r < 0x80:
			out = append(out, byte(r))
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			out = fmt.Appendf(out, `\u%04x\u%04x`, r1, r2)
		default:
			out = fmt.Appendf(out, `\u%04x`, r)
		}
	}
	return out
}
