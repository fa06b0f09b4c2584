package watch

import (
	"sync"
	"testing"
	"time"

	"workshop-announcer/internal/domain/entity"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(v ...int64) []entity.ItemID {
	out := make([]entity.ItemID, len(v))
	for i, x := range v {
		out[i] = entity.ItemID(x)
	}
	return out
}

func TestDetector_Diff(t *testing.T) {
	tests := []struct {
		name     string
		seen     []entity.ItemID
		snapshot []entity.ItemID
		want     []entity.ItemID
	}{
		{name: "nothing seen", snapshot: ids(3, 1, 2), want: ids(3, 1, 2)},
		{name: "keeps snapshot order", seen: ids(1, 2, 3), snapshot: ids(9, 1, 2, 3, 7), want: ids(9, 7)},
		{name: "drops duplicates", seen: ids(1), snapshot: ids(4, 1, 4, 5, 4), want: ids(4, 5)},
		{name: "unchanged snapshot", seen: ids(1, 2, 3), snapshot: ids(1, 2, 3), want: nil},
		{name: "shrinking snapshot is not a removal", seen: ids(1, 2, 3), snapshot: ids(2), want: nil},
		{name: "empty snapshot", seen: ids(1, 2), snapshot: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			d.Prime(tt.seen)
			before := d.Len()

			got, _ := d.Diff(tt.snapshot)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, before, d.Len(), "Diff must not modify the seen set")
		})
	}
}

func TestDetector_Priming(t *testing.T) {
	d := NewDetector()

	_, priming := d.Diff(ids(1, 2))
	assert.True(t, priming)
	assert.False(t, d.Prime(nil), "empty baseline must not end priming")
	assert.False(t, d.Primed())

	assert.True(t, d.Prime(ids(1, 2)))
	_, priming = d.Diff(ids(1, 2, 3))
	assert.False(t, priming)
	assert.True(t, d.contains(1))
	assert.False(t, d.contains(3))
}

func TestDetector_CommitIsMonotonic(t *testing.T) {
	d := NewDetector()
	d.Prime(ids(1, 2, 3))

	d.Commit(ids(4, 5))
	d.Commit(nil)
	d.Commit(ids(4))

	assert.Equal(t, 5, d.Len())
	for _, id := range ids(1, 2, 3, 4, 5) {
		assert.True(t, d.contains(id), "id %d", id)
	}
}

func TestDetector_Status(t *testing.T) {
	d := NewDetector()

	s := d.Status()
	assert.False(t, s.Primed)
	assert.Nil(t, s.LastCycle)
	assert.Nil(t, s.LastSuccessAt)

	d.Prime(ids(1, 2))
	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d.recordCycle(CycleReport{CycleID: "c1", Status: CycleStatusPrimed, FinishedAt: finished})
	d.recordCycle(CycleReport{CycleID: "c2", Status: CycleStatusSkipped, FinishedAt: finished.Add(time.Minute)})

	s = d.Status()
	assert.True(t, s.Primed)
	assert.Equal(t, 2, s.SeenCount)
	require.NotNil(t, s.LastCycle)
	assert.Equal(t, "c2", s.LastCycle.CycleID)
	require.NotNil(t, s.LastSuccessAt)
	assert.True(t, finished.Equal(*s.LastSuccessAt), "skipped cycle must not move last success")
}

func TestDetector_StatusConcurrentWithLoop(t *testing.T) {
	d := NewDetector()
	d.Prime(ids(1))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = d.Status()
		}
	}()

	for i := int64(2); i < 1000; i++ {
		d.Commit(ids(i))
		d.recordCycle(CycleReport{Status: CycleStatusCompleted, FinishedAt: time.Now()})
	}
	wg.Wait()

	assert.Equal(t, 999, d.Status().SeenCount)
}
