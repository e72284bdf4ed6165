package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

type pdfPages struct {
	reader *pdf.Reader
}

func (p pdfPages) NumPage() int {
	return p.reader.NumPage()
}

func (p pdfPages) PageText(num int) (string, error) {
	page := p.reader.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func parsePDF(data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Failed to read PDF")
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open PDF")
		return ""
	}
	return concatPages(pdfPages{reader: reader})
}

// concatPages joins the text of every readable page. Pages that fail or
// have no text are skipped.
func concatPages(src pageSource) string {
	var b strings.Builder
	for i := 1; i <= src.NumPage(); i++ {
		pageText, err := readPage(src, i)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Skipping unreadable page")
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			log.Warn().Int("page", i).Msg("No text extracted from page")
			continue
		}
		b.WriteString(pageText)
	}
	return b.String()
}

func readPage(src pageSource, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", num, r)
		}
	}()
	return src.PageText(num)
}
