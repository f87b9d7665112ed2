package outbox

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"rescue-alert-service/internal/agent/localstore"
	"rescue-alert-service/internal/agent/media"
	"rescue-alert-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, *testutil.FakeClock, string) {
	t.Helper()
	root := t.TempDir()
	clk := testutil.NewFakeClock(epoch)
	return New(localstore.New(root), clk), clk, root
}

func collect(t *testing.T, s *Store) []Record {
	t.Helper()
	var out []Record
	for rec, err := range s.ListPending() {
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("25-1700000000000.json")
	require.NoError(t, err)
	assert.Equal(t, Key{BuildingID: "25", EnqueuedAt: 1700000000000}, k)

	k, err = ParseKey("north-wing-12")
	require.NoError(t, err)
	assert.Equal(t, "north-wing", k.BuildingID)

	for _, bad := range []string{"", "25", "-12", "25-", "25-abc"} {
		_, err := ParseKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestStore_EnqueueWritesSelfContainedDocument(t *testing.T) {
	s, _, root := newStore(t)

	key, err := s.Enqueue(Record{
		BuildingID:  "25",
		SenderID:    "stu-1",
		Description: "fire",
		Media:       []media.Blob{{Name: "a.jpg", MimeType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "25-"+strconv.FormatInt(epoch.UnixMilli(), 10), key.String())

	raw, err := os.ReadFile(filepath.Join(root, "offline", "emergencies", key.String()+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":"/9g="`, "媒体以base64保存")

	recs := collect(t, s)
	require.Len(t, recs, 1)
	assert.Equal(t, key, recs[0].Key)
	assert.Equal(t, "fire", recs[0].Description)
	assert.Equal(t, []byte{0xff, 0xd8}, recs[0].Media[0].Data)
}

func TestStore_KeysStrictlyIncreaseWhenClockStalls(t *testing.T) {
	s, _, _ := newStore(t)

	k1, err := s.Enqueue(Record{BuildingID: "1"})
	require.NoError(t, err)
	k2, err := s.Enqueue(Record{BuildingID: "1"})
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.Less(t, k1.EnqueuedAt, k2.EnqueuedAt)
}

func TestStore_ListPendingIsOrderedForAnyInterleaving(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		s, clk, _ := newStore(t)
		rng := rand.New(rand.NewSource(seed))
		buildings := []string{"25", "3", "north-wing", "7"}

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			clk.Advance(time.Duration(rng.Intn(3)) * time.Millisecond)
			wg.Add(1)
			go func(b string) {
				defer wg.Done()
				_, err := s.Enqueue(Record{BuildingID: b})
				assert.NoError(t, err)
			}(buildings[rng.Intn(len(buildings))])
		}
		wg.Wait()

		recs := collect(t, s)
		require.Len(t, recs, 20)
		for i := 1; i < len(recs); i++ {
			assert.LessOrEqual(t, recs[i-1].EnqueuedAt, recs[i].EnqueuedAt, "seed %d", seed)
		}
	}
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	s, clk, _ := newStore(t)
	k1, _ := s.Enqueue(Record{BuildingID: "1"})
	clk.Advance(time.Millisecond)
	k2, _ := s.Enqueue(Record{BuildingID: "2"})

	require.NoError(t, s.Remove(k1))
	require.NoError(t, s.Remove(k1))

	recs := collect(t, s)
	require.Len(t, recs, 1)
	assert.Equal(t, k2, recs[0].Key)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_ListPendingIsRestartable(t *testing.T) {
	s, clk, _ := newStore(t)
	for _, b := range []string{"1", "2", "3"} {
		clk.Advance(time.Millisecond)
		_, err := s.Enqueue(Record{BuildingID: b})
		require.NoError(t, err)
	}

	// 中途停止后重新开始，得到完整序列
	for rec := range s.ListPending() {
		assert.Equal(t, "1", rec.BuildingID)
		break
	}
	assert.Len(t, collect(t, s), 3)
}

func TestStore_CorruptRecordIsReportedAndSkipped(t *testing.T) {
	s, clk, root := newStore(t)
	k, err := s.Enqueue(Record{BuildingID: "1"})
	require.NoError(t, err)
	clk.Advance(time.Millisecond)
	_, err = s.Enqueue(Record{BuildingID: "2"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "offline", "emergencies", k.String()+".json"), []byte("{broken"), 0o644))

	var errs, ok int
	for rec, err := range s.ListPending() {
		if err != nil {
			errs++
			assert.Equal(t, k, rec.Key)
			continue
		}
		ok++
	}
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, ok)
}

func TestStore_RejectsBadBuilding(t *testing.T) {
	s, _, _ := newStore(t)
	_, err := s.Enqueue(Record{BuildingID: ""})
	assert.Error(t, err)
	_, err = s.Enqueue(Record{BuildingID: "../x"})
	assert.Error(t, err)
}

func TestStore_SharedRootNeverReusesKey(t *testing.T) {
	root := t.TempDir()
	clk := testutil.NewFakeClock(epoch)
	raise := New(localstore.New(root), clk)
	watch := New(localstore.New(root), clk)

	k1, err := raise.Enqueue(Record{BuildingID: "25", Description: "from raise"})
	require.NoError(t, err)
	k2, err := watch.Enqueue(Record{BuildingID: "25", Description: "from watch"})
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.True(t, k1.Less(k2))

	recs := collect(t, raise)
	require.Len(t, recs, 2)
	assert.Equal(t, "from raise", recs[0].Description)
	assert.Equal(t, "from watch", recs[1].Description)
	assert.Equal(t, k2.EnqueuedAt, recs[1].EnqueuedAt)
}

func TestRecord_CommitKey(t *testing.T) {
	rec := Record{Key: Key{BuildingID: "25", EnqueuedAt: 1700000000000}}
	derived := rec.CommitKey("dev-1")
	assert.Len(t, derived, 64)
	assert.Equal(t, IdempotencyKey("25", 1700000000000, "dev-1"), derived)
	assert.NotEqual(t, derived, rec.CommitKey("dev-2"))

	rec.IdempotencyKey = "fixed"
	assert.Equal(t, "fixed", rec.CommitKey("dev-1"))
}
