package local

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/pkg/errors"
)

func newRecord(t *testing.T, kind record.Kind, id string) *record.Record {
	t.Helper()
	r, err := record.FromMapping(kind, map[string]interface{}{
		"record_id":       id,
		"name":            "n-" + id,
		"structural_hash": []int64{1, 2},
	})
	require.NoError(t, err)
	return r
}

func TestRecordCache_SetAndGetOrLoad(t *testing.T) {
	c, err := NewRecordCache(8, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, newRecord(t, record.KindMolecule, "a")))

	got, hit, err := c.GetOrLoad(ctx, record.KindMolecule, "a", func(context.Context) (*record.Record, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "a", got.ID())
	assert.Equal(t, "n-a", got.Name)
	assert.Equal(t, []int64{1, 2}, got.StructuralHash)

	got.Name = "changed"
	again, _, err := c.GetOrLoad(ctx, record.KindMolecule, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "n-a", again.Name)
}

func TestRecordCache_KindsAreSeparate(t *testing.T) {
	c, err := NewRecordCache(8, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, newRecord(t, record.KindMolecule, "x")))

	loads := 0
	_, hit, err := c.GetOrLoad(ctx, record.KindReaction, "x", func(context.Context) (*record.Record, error) {
		loads++
		return newRecord(t, record.KindReaction, "x"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 2, c.Len())
}

func TestRecordCache_MissLoadsOnceAndFills(t *testing.T) {
	c, err := NewRecordCache(8, nil)
	require.NoError(t, err)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (*record.Record, error) {
		calls.Add(1)
		<-release
		return newRecord(t, record.KindMolecule, "m"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _, err := c.GetOrLoad(ctx, record.KindMolecule, "m", load)
			assert.NoError(t, err)
			assert.Equal(t, "m", r.ID())
		}()
	}
	for calls.Load() == 0 {
		// wait for the first loader to start
	}
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	_, hit, err := c.GetOrLoad(ctx, record.KindMolecule, "m", load)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestRecordCache_LoaderErrorNotCached(t *testing.T) {
	c, err := NewRecordCache(8, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, hit, err := c.GetOrLoad(ctx, record.KindMolecule, "gone", func(context.Context) (*record.Record, error) {
		return nil, record.ErrRecordNotFound
	})
	assert.False(t, hit)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 0, c.Len())
}

func TestRecordCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewRecordCache(2, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.SetMany(ctx, []*record.Record{
		newRecord(t, record.KindMolecule, "1"),
		newRecord(t, record.KindMolecule, "2"),
		newRecord(t, record.KindMolecule, "3"),
	}))
	assert.Equal(t, 2, c.Len())

	loaded := false
	_, hit, err := c.GetOrLoad(ctx, record.KindMolecule, "1", func(context.Context) (*record.Record, error) {
		loaded = true
		return newRecord(t, record.KindMolecule, "1"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, loaded)
}

func TestRecordCache_Flush(t *testing.T) {
	c, err := NewRecordCache(0, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.SetMany(ctx, []*record.Record{
		newRecord(t, record.KindMolecule, "1"),
		newRecord(t, record.KindMolecule, "2"),
		newRecord(t, record.KindReaction, "1"),
	}))

	n, err := c.Flush(ctx, record.KindMolecule)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 1, c.Len())
}

//Personal.AI order the ending
