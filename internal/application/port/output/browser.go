package output

import (
	"context"

	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

// BrowserPort executes actions against a live page. Element-targeting actions
// receive the locator the distiller resolved for their index.
type BrowserPort interface {
	Navigate(ctx context.Context, url string) error
	Execute(ctx context.Context, action entity.Action, locator string) (entity.ExecutionOutcome, error)
	CurrentURL() string
	Close()
}

type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

type SnapshotSource interface {
	Snapshot(ctx context.Context) (*dom.Document, error)
}

type MutationSource interface {
	StartCapture(ctx context.Context) error
	StopCapture(ctx context.Context) ([]entity.MutationRecord, error)
	PageInfo(ctx context.Context) (entity.PageInfo, error)
}
