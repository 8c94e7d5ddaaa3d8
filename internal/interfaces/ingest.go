package interfaces

import (
	"context"

	"cvm-dfp-bot/internal/ingest"
)

// IngestClient submits per-(company, fiscal year) payloads downstream.
type IngestClient interface {
	SendBatch(ctx context.Context, payloads []map[string]any) *ingest.Result
}
