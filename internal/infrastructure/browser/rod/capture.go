package rod

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

var (
	//go:embed js/snapshot.js
	snapshotJS string
	//go:embed js/observe_start.js
	observeStartJS string
	//go:embed js/observe_stop.js
	observeStopJS string
)

// Snapshot captures the live DOM with computed layout and converts it into a
// detached dom.Document.
func (b *BrowserAdapter) Snapshot(ctx context.Context) (*dom.Document, error) {
	page, err := b.livePage(ctx)
	if err != nil {
		return nil, err
	}
	res, err := page.Timeout(b.timeout).Eval(snapshotJS)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", entity.ErrBackend, err)
	}
	doc, snap, err := decodeSnapshot(res.Value.Str())
	if err != nil {
		return nil, err
	}
	if snap.Truncated {
		b.logger.Warn("Snapshot truncated at node budget", "url", snap.URL, "nodes", snap.Nodes)
	}
	return doc, nil
}

// snapshot is the payload of snapshot.js. Truncated is set when the walk ran
// out of node budget before covering the whole document.
type snapshot struct {
	dom.Tree
	Truncated bool `json:"truncated"`
	Nodes     int  `json:"nodes"`
}

func decodeSnapshot(raw string) (*dom.Document, snapshot, error) {
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, snapshot{}, fmt.Errorf("%w: decode snapshot: %v", entity.ErrBackend, err)
	}
	return dom.FromTree(snap.Tree), snap, nil
}

// StartCapture installs a MutationObserver in the page. Records survive until
// StopCapture or until the document is replaced by a navigation.
func (b *BrowserAdapter) StartCapture(ctx context.Context) error {
	page, err := b.livePage(ctx)
	if err != nil {
		return err
	}
	if _, err := page.Timeout(b.timeout).Eval(observeStartJS); err != nil {
		return fmt.Errorf("%w: start mutation capture: %v", entity.ErrBackend, err)
	}
	return nil
}

func (b *BrowserAdapter) StopCapture(ctx context.Context) ([]entity.MutationRecord, error) {
	page, err := b.livePage(ctx)
	if err != nil {
		return nil, err
	}
	res, err := page.Timeout(b.timeout).Eval(observeStopJS)
	if err != nil {
		return nil, fmt.Errorf("%w: stop mutation capture: %v", entity.ErrBackend, err)
	}
	var records []entity.MutationRecord
	if err := json.Unmarshal([]byte(res.Value.Str()), &records); err != nil {
		return nil, fmt.Errorf("%w: decode mutations: %v", entity.ErrBackend, err)
	}
	return records, nil
}

func (b *BrowserAdapter) PageInfo(ctx context.Context) (entity.PageInfo, error) {
	return b.pageInfo(ctx)
}
