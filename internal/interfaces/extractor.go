package interfaces

import (
	"context"

	"cvm-dfp-bot/internal/archive"
	"cvm-dfp-bot/internal/statement/pdftext"
	"cvm-dfp-bot/internal/statement/xlsx"
)

// ArchiveExtractor unpacks a filing archive and triages its contents.
type ArchiveExtractor interface {
	Extract(ctx context.Context, zipPath, destDir string) (*archive.Contents, error)
}

// SpreadsheetExtractor maps a structured spreadsheet export to per-year
// fields. declaredYear is the base year hinted by the listing, 0 when
// unknown.
type SpreadsheetExtractor interface {
	Extract(ctx context.Context, path string, declaredYear int, preferConsolidated bool) (*xlsx.Result, error)
}

// DocumentExtractor maps a rendered statement document to per-year fields.
type DocumentExtractor interface {
	ExtractFile(ctx context.Context, path string) (*pdftext.Result, error)
}
