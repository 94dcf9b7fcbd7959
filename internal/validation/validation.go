// Package validation checks user-supplied paths and import payloads before
// they reach the importer or the filesystem.
package validation

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"path/filepath"
	"strings"
	"unicode"

	apperrors "github.com/FocuswithJustin/ReformedChapter/core/errors"
)

// Limits applied to uploads and paths.
const (
	// MaxImportSize is the largest import payload accepted (32 MB).
	MaxImportSize = 32 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// SanitizePath cleans userPath and ensures it stays inside baseDir. The
// returned path is relative to baseDir.
func SanitizePath(baseDir, userPath string) (string, error) {
	if err := ValidatePath(userPath); err != nil {
		return "", err
	}

	cleanPath := filepath.Clean(userPath)
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return cleanPath, nil
}

// ValidatePath rejects empty, oversized and control-character paths.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, r := range path {
		if r == 0 {
			return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateFilename checks a bare file name, such as an uploaded import's
// name, for separators, control characters and reserved names.
func ValidateFilename(filename string) error {
	switch {
	case filename == "":
		return ErrInvalidFilename
	case len(filename) > MaxFilenameLength:
		return ErrFilenameTooLong
	case filename == "." || filename == "..":
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	case strings.ContainsAny(filename, "/\\"):
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	case strings.HasPrefix(filename, "-"):
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	return nil
}

// ValidateEmail accepts an empty address or a single RFC 5322 address.
func ValidateEmail(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return &apperrors.ValidationError{Field: "email", Value: addr, Message: "not a valid email address"}
	}
	return nil
}

// Encoding is the structured text format of an import.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingYAML    Encoding = "yaml"
	EncodingUnknown Encoding = "unknown"
)

// Format describes an import payload: its text encoding and whether it
// arrived xz-compressed.
type Format struct {
	Encoding Encoding
	XZ       bool
}

func (f Format) String() string {
	if f.XZ {
		return string(f.Encoding) + ".xz"
	}
	return string(f.Encoding)
}

var (
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte{0x50, 0x4b, 0x03, 0x04}
)

// sniffLen is enough to see a compression header and the first token of a
// text document after leading whitespace or a byte order mark.
const sniffLen = 512

// DetectFormat peeks at r and decides how the payload is encoded. Magic
// bytes win over the file name; the extension (".json", ".yaml", ".yml",
// optionally followed by ".xz") breaks ties for text. The returned reader
// replays the peeked bytes.
//
// For xz payloads only the compression is detected here; the encoding comes
// from the name (e.g. "seed.yaml.xz") and is left unknown otherwise, for
// the caller to sniff after decompression with SniffEncoding.
func DetectFormat(r io.Reader, filename string) (Format, io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return Format{}, br, fmt.Errorf("failed to read header: %w", err)
	}

	lower := strings.ToLower(filename)
	switch {
	case bytes.HasPrefix(head, xzMagic):
		return Format{Encoding: encodingFromExtension(strings.TrimSuffix(lower, ".xz")), XZ: true}, br, nil
	case bytes.HasPrefix(head, gzipMagic):
		return Format{}, br, apperrors.NewUnsupported("format", "gzip imports are not accepted, use xz")
	case bytes.HasPrefix(head, zipMagic):
		return Format{}, br, apperrors.NewUnsupported("format", "zip imports are not accepted, use xz")
	}

	if len(head) == 0 {
		return Format{}, br, apperrors.NewValidation("file", "empty import")
	}
	if !IsLikelyText(head) {
		return Format{}, br, apperrors.NewUnsupported("format", "binary content")
	}
	if strings.HasSuffix(lower, ".xz") {
		return Format{}, br, &apperrors.ValidationError{Field: "file", Value: filename, Message: "xz extension but content is not xz-compressed"}
	}

	enc := encodingFromExtension(lower)
	if enc == EncodingUnknown {
		enc = SniffEncoding(head)
	}
	return Format{Encoding: enc}, br, nil
}

func encodingFromExtension(name string) Encoding {
	switch filepath.Ext(name) {
	case ".json":
		return EncodingJSON
	case ".yaml", ".yml":
		return EncodingYAML
	}
	return EncodingUnknown
}

// SniffEncoding guesses the encoding of decompressed text: JSON when the
// first significant byte opens an array or object, YAML otherwise.
func SniffEncoding(head []byte) Encoding {
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.TrimLeftFunc(head, unicode.IsSpace)
	if len(head) == 0 {
		return EncodingUnknown
	}
	if head[0] == '[' || head[0] == '{' {
		return EncodingJSON
	}
	return EncodingYAML
}

// IsLikelyText reports whether buf looks like text: no NUL bytes and at
// least 95% printable ASCII among the ASCII bytes. UTF-8 multibyte
// sequences are neutral.
func IsLikelyText(buf []byte) bool {
	if len(buf) == 0 || bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable, control := 0, 0
	for _, b := range buf {
		switch {
		case b >= 0x20 && b <= 0x7e, b == '\t', b == '\n', b == '\r':
			printable++
		case b < 0x20:
			control++
		}
	}
	if printable+control == 0 {
		return true
	}
	return float64(printable)/float64(printable+control) > 0.95
}
