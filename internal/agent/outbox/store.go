// Package outbox is the durable queue of alerts raised while the device had no connectivity.
package outbox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"
	"sync"

	"rescue-alert-service/internal/agent/clock"
	"rescue-alert-service/internal/agent/localstore"
	"rescue-alert-service/internal/agent/media"

	"github.com/pkg/errors"
)

// Dir is where queue documents live inside the local store.
const Dir = "offline/emergencies"

// Key identifies a record and encodes its creation order: "<buildingId>-<unix ms>".
type Key struct {
	BuildingID string
	EnqueuedAt int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.BuildingID, k.EnqueuedAt)
}

func (k Key) path() string {
	return Dir + "/" + k.String() + ".json"
}

// Less orders keys by creation time, then building.
func (k Key) Less(o Key) bool {
	if k.EnqueuedAt != o.EnqueuedAt {
		return k.EnqueuedAt < o.EnqueuedAt
	}
	return k.BuildingID < o.BuildingID
}

// ParseKey parses a key or a document name ("25-1700000000000.json").
func ParseKey(s string) (Key, error) {
	s = strings.TrimSuffix(s, ".json")
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("malformed queue key %q", s)
	}
	ms, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("malformed queue key %q: %w", s, err)
	}
	return Key{BuildingID: s[:i], EnqueuedAt: ms}, nil
}

// Record is one queued alert. It is self-contained: media bytes travel inside the document.
type Record struct {
	Key         Key          `json:"-"`
	BuildingID  string       `json:"buildingId"`
	EnqueuedAt  int64        `json:"enqueuedAt"`
	SenderID    string       `json:"senderId"`
	SenderName  string       `json:"senderName"`
	Description string       `json:"description"`
	Media       []media.Blob `json:"media"`
	// IdempotencyKey is fixed when the alert is raised. Records written before it existed
	// leave it empty and get one derived from their key.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// CommitKey returns the dedup key the record is committed under from deviceID.
func (r Record) CommitKey(deviceID string) string {
	if r.IdempotencyKey != "" {
		return r.IdempotencyKey
	}
	return IdempotencyKey(r.Key.BuildingID, r.Key.EnqueuedAt, deviceID)
}

// IdempotencyKey is sha256("<buildingId>:<ms>:<deviceId>") in hex.
func IdempotencyKey(buildingID string, ms int64, deviceID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", buildingID, ms, deviceID)))
	return hex.EncodeToString(sum[:])
}

// maxKeyProbes bounds how far Enqueue walks forward past keys taken by other writers.
const maxKeyProbes = 1000

// Store persists records through a localstore. Several Stores, in one or more processes,
// may share a root: a key is never reused while its document exists.
type Store struct {
	docs  *localstore.Store
	clock clock.Clock

	mu   sync.Mutex
	last int64
}

// New returns a queue over docs.
func New(docs *localstore.Store, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Store{docs: docs, clock: clk}
}

// Enqueue stamps rec with a fresh key and persists it. The record is visible to ListPending
// once Enqueue returns. Keys are strictly increasing within a process even when the clock
// stalls or steps backwards, and a key already taken on disk is skipped.
func (s *Store) Enqueue(rec Record) (Key, error) {
	if strings.TrimSpace(rec.BuildingID) == "" {
		return Key{}, errors.New("record has no building id")
	}
	if strings.ContainsAny(rec.BuildingID, "/\\") {
		return Key{}, fmt.Errorf("building id %q contains a path separator", rec.BuildingID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.clock.Now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}

	for range maxKeyProbes {
		key := Key{BuildingID: rec.BuildingID, EnqueuedAt: ms}
		rec.Key = key
		rec.EnqueuedAt = ms
		err := s.docs.CreateJSON(key.path(), rec)
		if errors.Is(err, localstore.ErrExists) {
			ms++
			continue
		}
		if err != nil {
			return Key{}, errors.Wrapf(err, "enqueue %s", key)
		}
		s.last = ms
		return key, nil
	}
	return Key{}, fmt.Errorf("enqueue %s: no free key after %d attempts", rec.BuildingID, maxKeyProbes)
}

// Keys returns the pending keys in creation order.
func (s *Store) Keys() ([]Key, error) {
	names, err := s.docs.List(Dir)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, len(names))
	for _, name := range names {
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		k, err := ParseKey(name)
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys, nil
}

// ListPending yields pending records oldest first. Each record is read only when the
// consumer reaches it, and every call starts a fresh listing. An unreadable record is
// yielded as an error with its key set, and iteration continues.
func (s *Store) ListPending() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		keys, err := s.Keys()
		if err != nil {
			yield(Record{}, err)
			return
		}
		for _, k := range keys {
			rec, err := s.Get(k)
			if errors.Is(err, localstore.ErrNotFound) {
				// removed after the listing was taken
				continue
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Get reads one record.
func (s *Store) Get(k Key) (Record, error) {
	var rec Record
	if err := s.docs.ReadJSON(k.path(), &rec); err != nil {
		return Record{Key: k}, err
	}
	rec.Key = k
	if rec.BuildingID == "" {
		rec.BuildingID = k.BuildingID
	}
	if rec.EnqueuedAt == 0 {
		rec.EnqueuedAt = k.EnqueuedAt
	}
	return rec, nil
}

// Remove deletes one record. Removing a missing key is not an error.
func (s *Store) Remove(k Key) error {
	return s.docs.Delete(k.path())
}

// Len returns the number of pending records.
func (s *Store) Len() (int, error) {
	keys, err := s.Keys()
	return len(keys), err
}
