package interfaces

import "context"

// Download is one filing archive fetched from the portal, annotated with the
// reference date scraped from the listing row that produced it.
type Download struct {
	ZipPath       string
	ReferenceDate string
}

// FilingSource locates and downloads a company's DFP filing archives for a
// date window, placing the archives under destDir.
type FilingSource interface {
	Fetch(ctx context.Context, ticker, codigoCVM, startDate, endDate, destDir string) ([]Download, error)
}
