// Package fileio reads and writes source files with encoding detection:
// a byte order mark selects UTF-8 or UTF-16, everything else is treated
// as UTF-8. Formatters re-encode on write so a file keeps its original
// encoding and BOM.
package fileio

import (
	"io/fs"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding identifies a source file's on-disk text encoding.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF8BOM
	UTF16LE
	UTF16BE
)

func (e Encoding) String() string {
	switch e {
	case UTF8BOM:
		return "utf-8 bom"
	case UTF16LE:
		return "utf-16le"
	case UTF16BE:
		return "utf-16be"
	}
	return "utf-8"
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding sniffs the byte order mark. Files without a BOM report
// UTF8.
func DetectEncoding(data []byte) Encoding {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return UTF8BOM
	}
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		return UTF16BE
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return UTF16LE
	}
	return UTF8
}

// Decode converts raw file bytes to UTF-8 text with the BOM removed.
// Invalid byte sequences decode to U+FFFD rather than failing, so a
// scanner never trips over one bad file.
func Decode(data []byte) ([]byte, Encoding, error) {
	enc := DetectEncoding(data)

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, enc, err
	}
	return out, enc, nil
}

// Encode converts UTF-8 text back to the given encoding, restoring the
// BOM the file originally carried.
func Encode(text []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case UTF8BOM:
		out := make([]byte, 0, len(utf8BOM)+len(text))
		out = append(out, utf8BOM...)
		return append(out, text...), nil
	case UTF16LE:
		encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		out, _, err := transform.Bytes(encoder, text)
		return out, err
	case UTF16BE:
		encoder := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		out, _, err := transform.Bytes(encoder, text)
		return out, err
	}
	return text, nil
}

// ReadFile reads path and decodes its content to UTF-8.
func ReadFile(path string) ([]byte, Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, UTF8, err
	}
	return Decode(data)
}

// ReadText is the coordinator-friendly form of ReadFile: decoded bytes
// only, for callers that do not rewrite the file.
func ReadText(path string) ([]byte, error) {
	text, _, err := ReadFile(path)
	return text, err
}

// WriteFile encodes text for enc and writes it to path.
func WriteFile(path string, text []byte, enc Encoding, perm fs.FileMode) error {
	data, err := Encode(text, enc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}
