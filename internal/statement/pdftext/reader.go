package pdftext

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// ReadPages extracts the plain text of every page of a PDF. Pages whose text
// cannot be extracted come back empty so page indexes stay aligned.
func ReadPages(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// ExtractFile reads a PDF and runs the page extraction over it.
func ExtractFile(ctx context.Context, path string, opts Options) (*Result, error) {
	pages, err := ReadPages(path)
	if err != nil {
		return nil, err
	}
	return ExtractPages(ctx, pages, opts), nil
}
