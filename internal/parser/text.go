package parser

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdown     = goldmark.New(goldmark.WithExtensions(extension.GFM))
	walkMarkdown = ast.Walk
)

func parseText(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}

// parseMarkdown walks the goldmark AST and keeps only the readable text.
func parseMarkdown(data []byte) string {
	src := []byte(parseText(data))
	doc := markdown.Parser().Parse(text.NewReader(src))

	var b bytes.Buffer
	newline := func() {
		if b.Len() > 0 && b.Bytes()[b.Len()-1] != '\n' {
			b.WriteByte('\n')
		}
	}

	err := walkMarkdown(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch {
			case n.Kind() == east.KindTableCell:
				b.WriteByte('\t')
			case n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument:
				newline()
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.URL(src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to walk markdown, keeping raw text")
		return strings.TrimSpace(string(src))
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return strings.TrimSpace(string(src))
	}
	return out
}

// parseCSV renders the records as an aligned table with a row index column.
func parseCSV(data []byte) string {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse CSV, keeping raw text")
		return parseText(data)
	}
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\t%s\n", strings.Join(records[0], "\t"))
	for i, row := range records[1:] {
		fmt.Fprintf(w, "%d\t%s\n", i, strings.Join(row, "\t"))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// parseJSON flattens the document into "path: value" lines in document order.
func parseJSON(data []byte) string {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var b strings.Builder
	for {
		err := walkJSON(dec, "", &b)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to parse JSON, keeping raw text")
			return parseText(data)
		}
	}
	return strings.TrimSpace(b.String())
}

func walkJSON(dec *json.Decoder, path string, b *strings.Builder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		value := "null"
		if tok != nil {
			value = fmt.Sprint(tok)
		}
		if path != "" {
			b.WriteString(path)
			b.WriteString(": ")
		}
		b.WriteString(value)
		b.WriteByte('\n')
		return nil
	}

	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)
			child := key
			if path != "" {
				child = path + "." + key
			}
			if err := walkJSON(dec, child, b); err != nil {
				return unexpected(err)
			}
		}
	case '[':
		for i := 0; dec.More(); i++ {
			if err := walkJSON(dec, fmt.Sprintf("%s[%d]", path, i), b); err != nil {
				return unexpected(err)
			}
		}
	}
	_, err = dec.Token()
	return unexpected(err)
}

// unexpected turns an EOF inside a value into a parse error.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
