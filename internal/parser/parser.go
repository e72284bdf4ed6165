package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ragchat/internal/models"

	"github.com/rs/zerolog/log"
)

// extractFunc never fails: unreadable content yields empty text.
type extractFunc func(data []byte) string

var extractors = map[string]extractFunc{
	"txt":   parseText,
	"md":    parseMarkdown,
	"csv":   parseCSV,
	"json":  parseJSON,
	"pdf":   parsePDF,
	"arxiv": parsePDF,
	"docx":  parseDOCX,
	"pptx":  parsePPTX,
	"xlsx":  parseXLSX,
}

// Extracted is the text of one file, or the unsupported variant.
type Extracted struct {
	Name        string
	Ext         string
	Text        string
	Unsupported bool
}

// Content returns the text, or the fixed notice for unsupported files.
func (e Extracted) Content() string {
	if e.Unsupported {
		return models.UnsupportedFileMessage
	}
	return e.Text
}

func (e Extracted) Empty() bool {
	return e.Unsupported || strings.TrimSpace(e.Text) == ""
}

// Extension returns the lower-cased text after the last dot of name.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func Supported(name string) bool {
	_, ok := extractors[Extension(name)]
	return ok
}

func SupportedExtensions() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Read extracts the text of an uploaded file. The error is reserved for
// failures reading r itself.
func Read(name string, r io.Reader) (Extracted, error) {
	ext := Extension(name)
	out := Extracted{Name: name, Ext: ext}

	extract, ok := extractors[ext]
	if !ok {
		log.Warn().Str("file", name).Str("ext", ext).Msg("Unsupported file type")
		out.Unsupported = true
		return out, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return out, fmt.Errorf("failed to read %s: %w", name, err)
	}
	out.Text = extract(data)
	log.Debug().Str("file", name).Int("chars", len(out.Text)).Msg("Extracted text")
	return out, nil
}

func ReadFile(path string) (Extracted, error) {
	f, err := os.Open(path)
	if err != nil {
		return Extracted{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}
