package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark/ast"
)

// buildPDF writes a minimal PDF with one line of text per page.
func buildPDF(pages ...string) []byte {
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, page := range pages {
		objs = append(objs, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", page)
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type fakePages struct {
	pages []string
	fail  map[int]bool
	panic map[int]bool
}

func (f fakePages) NumPage() int { return len(f.pages) }

func (f fakePages) PageText(num int) (string, error) {
	if f.panic[num] {
		panic("broken content stream")
	}
	if f.fail[num] {
		return "", errors.New("unreadable page")
	}
	return f.pages[num-1], nil
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("Paper.PDF"))
	assert.Equal(t, "gz", Extension("archive.tar.gz"))
	assert.Equal(t, "", Extension("README"))
	assert.True(t, Supported("notes.arxiv"))
	assert.False(t, Supported("image.xyz"))
}

func TestRead_Unsupported(t *testing.T) {
	out, err := Read("image.xyz", strings.NewReader("whatever"))
	require.NoError(t, err)

	assert.True(t, out.Unsupported)
	assert.Equal(t, "Not supported file type.", out.Content())
	assert.True(t, out.Empty())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("file notes"), 0o644))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", out.Name)
	assert.Equal(t, "file notes", out.Text)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRead_Text(t *testing.T) {
	out, err := Read("notes.txt", strings.NewReader("plain notes\nsecond line"))
	require.NoError(t, err)
	assert.Equal(t, "plain notes\nsecond line", out.Content())
	assert.Equal(t, "txt", out.Ext)
}

func TestRead_Markdown(t *testing.T) {
	src := "# Title\n\nHello *world*.\n\n- first\n- second\n\n```\ncode here\n```\n"
	out, err := Read("readme.md", strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "Title\nHello world.\nfirst\nsecond\ncode here", out.Content())
}

func TestRead_MarkdownWalkErrorKeepsRaw(t *testing.T) {
	walkMarkdown = func(ast.Node, ast.Walker) error { return errors.New("walk failed") }
	t.Cleanup(func() { walkMarkdown = ast.Walk })

	out, err := Read("readme.md", strings.NewReader("# Title\n\nHello *world*.\n"))
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nHello *world*.", out.Content())
}

func TestRead_CSV(t *testing.T) {
	src := "name,age\nann,31\nbob,4\n"
	out, err := Read("people.csv", strings.NewReader(src))
	require.NoError(t, err)

	lines := strings.Split(out.Content(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"name", "age"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "ann", "31"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "bob", "4"}, strings.Fields(lines[2]))
}

func TestRead_JSON(t *testing.T) {
	src := `{"title":"Paper","authors":["A","B"],"meta":{"year":2020,"open":true,"doi":null}}`
	out, err := Read("paper.json", strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "title: Paper\nauthors[0]: A\nauthors[1]: B\nmeta.year: 2020\nmeta.open: true\nmeta.doi: null", out.Content())
}

func TestRead_JSONInvalidKeepsRaw(t *testing.T) {
	out, err := Read("broken.json", strings.NewReader(`{"title": `))
	require.NoError(t, err)
	assert.Equal(t, `{"title": `, out.Content())
}

func TestRead_PDF(t *testing.T) {
	data := buildPDF("Hello", "World")

	for _, name := range []string{"paper.pdf", "paper.arxiv"} {
		out, err := Read(name, bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "HelloWorld", out.Content(), name)
	}
}

func TestRead_CorruptPDF(t *testing.T) {
	out, err := Read("broken.pdf", strings.NewReader("not a pdf at all"))
	require.NoError(t, err)
	assert.False(t, out.Unsupported)
	assert.True(t, out.Empty())
}

func TestConcatPages_SkipsUnreadable(t *testing.T) {
	src := fakePages{
		pages: []string{"alpha ", "", "beta", "gamma"},
		fail:  map[int]bool{2: true},
		panic: map[int]bool{4: true},
	}
	assert.Equal(t, "alpha beta", concatPages(src))
}

func TestRead_DOCX(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
</w:body></w:document>`
	rels := `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
	data := buildZip(t, map[string]string{
		"word/document.xml":            doc,
		"word/_rels/document.xml.rels": rels,
	})

	out, err := Read("report.docx", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "First paragraph\nSecond paragraph", out.Content())
}

func TestRead_PPTXSlideOrder(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:sld>`
	}
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml":           slide("ten"),
		"ppt/slides/slide2.xml":            slide("two"),
		"ppt/slides/slide1.xml":            slide("one"),
		"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
	})

	out, err := Read("deck.pptx", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nten", out.Content())
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "city"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "population"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Oslo"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 709000))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	out, err := Read("cities.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "## Sheet: Sheet1\ncity\tpopulation\nOslo\t709000", out.Content())
}

func TestSupportedExtensions_Sorted(t *testing.T) {
	exts := SupportedExtensions()
	assert.Contains(t, exts, "arxiv")
	assert.Contains(t, exts, "docx")
	assert.IsIncreasing(t, exts)
}
