package reconcile

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceScan scans a fixed slice of ints in id order, like the store scanners.
func sliceScan(ids []int) ScanFunc[int] {
	return func(_ context.Context, cursor string, limit int) ([]int, string, error) {
		start := 0
		if cursor != "" {
			var err error
			start, err = strconv.Atoi(cursor)
			if err != nil {
				return nil, "", err
			}
		}
		end := start + limit
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		if end >= len(ids) || len(batch) < limit {
			return batch, "", nil
		}
		return batch, strconv.Itoa(end), nil
	}
}

func TestMapperVisitsEverything(t *testing.T) {
	ids := make([]int, 25)
	for i := range ids {
		ids[i] = i + 1
	}

	var mu sync.Mutex
	var seen []int

	m := &Mapper[int]{
		Name: "test-visit",
		Scan: sliceScan(ids),
		Handle: func(_ context.Context, id int) error {
			mu.Lock()
			seen = append(seen, id)
			mu.Unlock()
			return nil
		},
		Workers:   3,
		BatchSize: 10,
	}

	stats, err := m.Run(context.Background())
	require.NoError(t, err)

	sort.Ints(seen)
	assert.Equal(t, ids, seen)
	assert.Equal(t, int64(25), stats.Visited)
	assert.Zero(t, stats.Retried)
	assert.Zero(t, stats.FailedBatches)
}

func TestMapperRetriesBatchAsUnit(t *testing.T) {
	var mu sync.Mutex
	visits := map[int]int{}
	failedOnce := false

	m := &Mapper[int]{
		Name: "test-retry",
		Scan: sliceScan([]int{1, 2, 3}),
		Handle: func(_ context.Context, id int) error {
			mu.Lock()
			defer mu.Unlock()
			visits[id]++
			if id == 3 && !failedOnce {
				failedOnce = true
				return errors.New("transient")
			}
			return nil
		},
		Workers:   1,
		BatchSize: 10,
	}

	stats, err := m.Run(context.Background())
	require.NoError(t, err)

	// The whole batch is redelivered, so 1 and 2 are handled twice even
	// though they succeeded the first time.
	assert.Equal(t, 2, visits[1])
	assert.Equal(t, 2, visits[2])
	assert.Equal(t, 2, visits[3])
	assert.Equal(t, int64(1), stats.Retried)
	assert.Zero(t, stats.FailedBatches)
}

func TestMapperAbandonsFailingBatch(t *testing.T) {
	var mu sync.Mutex
	visits := map[int]int{}

	m := &Mapper[int]{
		Name: "test-abandon",
		Scan: sliceScan([]int{1, 2, 3, 4}),
		Handle: func(_ context.Context, id int) error {
			mu.Lock()
			visits[id]++
			mu.Unlock()
			if id == 2 {
				return errors.New("permanent")
			}
			return nil
		},
		Workers:    1,
		BatchSize:  2,
		MaxRetries: 2,
	}

	// A poisoned batch is dropped without failing the run, and later
	// batches still get processed.
	stats, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.FailedBatches)
	assert.Equal(t, int64(2), stats.Retried)
	assert.Equal(t, 3, visits[2])
	assert.Equal(t, 1, visits[3])
	assert.Equal(t, 1, visits[4])
}

func TestMapperScanErrorFailsRun(t *testing.T) {
	m := &Mapper[int]{
		Name: "test-scan-error",
		Scan: func(_ context.Context, _ string, _ int) ([]int, string, error) {
			return nil, "", errors.New("store is down")
		},
		Handle: func(_ context.Context, _ int) error { return nil },
	}

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan failed")
}

func TestMapperEmptyScan(t *testing.T) {
	m := &Mapper[int]{
		Name:   "test-empty",
		Scan:   sliceScan(nil),
		Handle: func(_ context.Context, _ int) error { return nil },
	}

	stats, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Visited)
}
