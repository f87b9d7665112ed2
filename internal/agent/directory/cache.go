// Package directory keeps the device-local snapshot of responder phone numbers for offline use.
package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rescue-alert-service/internal/agent/clock"
	"rescue-alert-service/internal/agent/localstore"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/pkg/errors"
)

// Path of the snapshot document in the local store.
const Path = "cache/responders.json"

// Source fetches the current responder numbers from the canonical backend.
type Source interface {
	ResponderNumbers(ctx context.Context) ([]string, error)
}

// Snapshot is the last known responder directory.
type Snapshot struct {
	PhoneNumbers []string  `json:"phoneNumbers"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// Cache refreshes the snapshot while online and serves it while offline.
type Cache struct {
	source Source
	docs   *localstore.Store
	clock  clock.Clock

	mu sync.Mutex
}

// New returns a cache persisted in docs.
func New(source Source, docs *localstore.Store, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Cache{source: source, docs: docs, clock: clk}
}

// Refresh fetches the directory and overwrites the snapshot. On failure the old snapshot is kept,
// the error is logged and returned for callers that care; none are required to.
func (c *Cache) Refresh(ctx context.Context) error {
	numbers, err := c.source.ResponderNumbers(ctx)
	if err != nil {
		Logger.Warning("[DIRECTORY] 刷新救援人员通讯录失败，保留旧快照: %v", err)
		return errors.Wrap(err, "refresh responder directory")
	}

	snap := Snapshot{PhoneNumbers: normalize(numbers), FetchedAt: c.clock.Now()}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.docs.WriteJSON(Path, snap); err != nil {
		Logger.Error("[DIRECTORY] 写入通讯录快照失败: %v", err)
		return err
	}
	Logger.Info("[DIRECTORY] 通讯录已更新，共 %d 个号码", len(snap.PhoneNumbers))
	return nil
}

// Read returns the last snapshot, or an empty one if none was ever stored or it cannot be read.
func (c *Cache) Read() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var snap Snapshot
	if err := c.docs.ReadJSON(Path, &snap); err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			Logger.Warning("[DIRECTORY] 读取通讯录快照失败: %v", err)
		}
		return Snapshot{PhoneNumbers: []string{}}
	}
	if snap.PhoneNumbers == nil {
		snap.PhoneNumbers = []string{}
	}
	return snap
}

// normalize drops blanks and duplicates, keeping first-seen order.
func normalize(numbers []string) []string {
	seen := make(map[string]struct{}, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Sorted returns a sorted copy of the snapshot numbers.
func (s Snapshot) Sorted() []string {
	out := append([]string(nil), s.PhoneNumbers...)
	sort.Strings(out)
	return out
}
