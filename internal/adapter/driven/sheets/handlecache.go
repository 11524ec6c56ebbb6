package sheets

import (
	"context"
	"sync"
	"time"
)

// DefaultHandleTTL bounds how long a resolved spreadsheet handle is served
// before the metadata is fetched again.
const DefaultHandleTTL = 5 * time.Minute

// spreadsheetHandle is the resolved reference to the spreadsheet: its sheet
// titles in tab order and the numeric sheet IDs the batchUpdate API needs.
type spreadsheetHandle struct {
	titles   []string
	sheetIDs map[string]int64 // lowercased title → sheetId
}

func (h *spreadsheetHandle) sheetID(title string) (int64, bool) {
	id, ok := h.sheetIDs[lowerTrim(title)]
	return id, ok
}

// handleCache is a time-bounded cache of the spreadsheet handle. The mutex
// is held across resolution, so at most one metadata fetch is in flight;
// concurrent callers wait and read the freshly written entry. Mutating sheet
// operations invalidate the handle explicitly.
type handleCache struct {
	ttl     time.Duration
	now     func() time.Time
	resolve func(ctx context.Context) (*spreadsheetHandle, error)

	mu         sync.Mutex
	handle     *spreadsheetHandle
	resolvedAt time.Time
}

func newHandleCache(ttl time.Duration, resolve func(ctx context.Context) (*spreadsheetHandle, error)) *handleCache {
	if ttl <= 0 {
		ttl = DefaultHandleTTL
	}
	return &handleCache{
		ttl:     ttl,
		now:     time.Now,
		resolve: resolve,
	}
}

// get returns the cached handle, resolving a fresh one when the cache is
// empty or past its TTL.
func (c *handleCache) get(ctx context.Context) (*spreadsheetHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil && c.now().Sub(c.resolvedAt) < c.ttl {
		return c.handle, nil
	}

	handle, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	c.handle = handle
	c.resolvedAt = c.now()
	return handle, nil
}

// invalidate drops the cached handle so the next access re-resolves.
func (c *handleCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = nil
}
