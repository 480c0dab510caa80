package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

var pdfMagic = []byte("%PDF-")

// Extractor reads page text with ledongthuc/pdf. The library works on a file
// path, so the upload is written to a scratch file that is always removed.
type Extractor struct {
	scratchDir string
}

func NewExtractor(scratchDir string) *Extractor {
	return &Extractor{scratchDir: scratchDir}
}

func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) ([]domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return nil, domain.WrapError(domain.ErrExtraction, "extract pdf", errors.New("missing %PDF header"))
	}

	path, cleanup, err := e.writeScratch(data)
	if err != nil {
		return nil, fmt.Errorf("extract pdf: %w", err)
	}
	defer cleanup()

	pages, err := readPages(path, filepath.Base(filename))
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "extract pdf", err)
	}
	return pages, nil
}

func (e *Extractor) writeScratch(data []byte) (string, func(), error) {
	f, err := os.CreateTemp(e.scratchDir, "upload-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close scratch file: %w", err)
	}
	return f.Name(), cleanup, nil
}

func readPages(path, source string) (pages []domain.Page, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return nil, errors.New("pdf has no pages")
	}

	pages = make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		text := ""
		if !page.V.IsNull() {
			text, err = page.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("read page %d: %w", i, err)
			}
		}
		pages = append(pages, domain.Page{
			Source: source,
			Number: i,
			Text:   text,
		})
	}
	return pages, nil
}
