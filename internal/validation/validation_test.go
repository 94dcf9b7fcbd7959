package validation

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	apperrors "github.com/FocuswithJustin/ReformedChapter/core/errors"
)

func TestSanitizePath(t *testing.T) {
	baseDir := "/tmp/imports"

	tests := []struct {
		name      string
		userPath  string
		want      string
		wantError error
	}{
		{"simple", "seed.json", "seed.json", nil},
		{"nested", "2024/seed.yaml", filepath.Join("2024", "seed.yaml"), nil},
		{"redundant separators", "2024//seed.yaml", filepath.Join("2024", "seed.yaml"), nil},
		{"dot component", "./seed.json", "seed.json", nil},
		{"double dot in name", "notes..json", "notes..json", nil},
		{"traversal", "../etc/passwd", "", ErrPathTraversal},
		{"traversal in middle", "a/../../etc/passwd", "", ErrPathTraversal},
		{"absolute", "/etc/passwd", "", ErrPathTraversal},
		{"empty", "", "", ErrEmptyPath},
		{"null byte", "seed\x00.json", "", ErrInvalidCharacter},
		{"too long", strings.Repeat("a", MaxPathLength+1), "", ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(baseDir, tt.userPath)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("SanitizePath(%q) error = %v, want %v", tt.userPath, err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizePath(%q) unexpected error: %v", tt.userPath, err)
			}
			if got != tt.want {
				t.Errorf("SanitizePath(%q) = %q, want %q", tt.userPath, got, tt.want)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantError error
	}{
		{"valid", "resources.yaml.xz", nil},
		{"unicode", "ressources-été.json", nil},
		{"empty", "", ErrInvalidFilename},
		{"dot", ".", ErrInvalidFilename},
		{"dotdot", "..", ErrInvalidFilename},
		{"slash", "a/b.json", ErrInvalidFilename},
		{"backslash", "a\\b.json", ErrInvalidFilename},
		{"hyphen", "-rf.json", ErrInvalidFilename},
		{"control", "seed\n.json", ErrInvalidFilename},
		{"too long", strings.Repeat("x", MaxFilenameLength+1), ErrFilenameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.wantError == nil && err != nil {
				t.Errorf("ValidateFilename(%q) = %v, want nil", tt.filename, err)
			}
			if tt.wantError != nil && !errors.Is(err, tt.wantError) {
				t.Errorf("ValidateFilename(%q) = %v, want %v", tt.filename, err, tt.wantError)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"", "  ", "ann@example.org"} {
		if err := ValidateEmail(ok); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"ann", "Ann <ann@example.org>", "a@b@c"} {
		if err := ValidateEmail(bad); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("ValidateEmail(%q) = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func compress(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz.NewWriter: %v", err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		filename string
		want     Format
	}{
		{"json by extension", []byte(`[{"book":"John"}]`), "seed.json", Format{Encoding: EncodingJSON}},
		{"yaml by extension", []byte("- book: John\n"), "seed.yml", Format{Encoding: EncodingYAML}},
		{"json sniffed", []byte("\n  [ ]"), "upload", Format{Encoding: EncodingJSON}},
		{"yaml sniffed", []byte("- book: John\n"), "", Format{Encoding: EncodingYAML}},
		{"json with bom", []byte("\xef\xbb\xbf{\"book\":\"John\"}"), "", Format{Encoding: EncodingJSON}},
		{"xz yaml", compress(t, "- book: John\n"), "seed.yaml.xz", Format{Encoding: EncodingYAML, XZ: true}},
		{"xz unknown inner", compress(t, "[]"), "seed.xz", Format{Encoding: EncodingUnknown, XZ: true}},
		{"xz without extension", compress(t, "[]"), "upload", Format{Encoding: EncodingUnknown, XZ: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, r, err := DetectFormat(bytes.NewReader(tt.content), tt.filename)
			if err != nil {
				t.Fatalf("DetectFormat error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat = %+v, want %+v", got, tt.want)
			}
			replayed, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !bytes.Equal(replayed, tt.content) {
				t.Error("returned reader does not replay the full content")
			}
		})
	}
}

func TestDetectFormatRejects(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		filename string
		want     error
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, "seed.json.gz", apperrors.ErrUnsupported},
		{"zip", []byte{0x50, 0x4b, 0x03, 0x04, 0x00}, "seed.zip", apperrors.ErrUnsupported},
		{"binary", []byte{0x01, 0x02, 0x00, 0x03}, "seed.json", apperrors.ErrUnsupported},
		{"empty", nil, "seed.json", apperrors.ErrInvalidInput},
		{"fake xz", []byte("[]"), "seed.json.xz", apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DetectFormat(bytes.NewReader(tt.content), tt.filename)
			if !errors.Is(err, tt.want) {
				t.Errorf("DetectFormat error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSniffEncoding(t *testing.T) {
	tests := map[string]Encoding{
		"[1,2]":        EncodingJSON,
		"  {\"a\": 1}": EncodingJSON,
		"---\n- a":     EncodingYAML,
		"   ":          EncodingUnknown,
		"":             EncodingUnknown,
	}
	for input, want := range tests {
		if got := SniffEncoding([]byte(input)); got != want {
			t.Errorf("SniffEncoding(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestIsLikelyText(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"ascii", []byte("hello world\n"), true},
		{"utf8", []byte("Ésaïe 53"), true},
		{"empty", nil, false},
		{"nul", []byte("a\x00b"), false},
		{"mostly control", bytes.Repeat([]byte{0x01}, 20), false},
	}
	for _, tt := range tests {
		if got := IsLikelyText(tt.buf); got != tt.want {
			t.Errorf("IsLikelyText(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatString(t *testing.T) {
	if got := (Format{Encoding: EncodingYAML, XZ: true}).String(); got != "yaml.xz" {
		t.Errorf("String = %q", got)
	}
	if got := (Format{Encoding: EncodingJSON}).String(); got != "json" {
		t.Errorf("String = %q", got)
	}
}
