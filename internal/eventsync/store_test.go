package eventsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admincal/internal/model"
	"admincal/internal/schedule"
)

func TestStoreApplyVersions(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.Snapshot().Events)

	ev := schedule.MapProject(model.ProjectRecord{ID: "1"})
	snap := s.apply(func(old []model.Event) ([]model.Event, bool) {
		return schedule.Merge(old, []model.Event{ev}), true
	})
	assert.Equal(t, uint64(1), snap.Version)
	assert.False(t, snap.UpdatedAt.IsZero())

	same := s.apply(func(old []model.Event) ([]model.Event, bool) { return old, false })
	assert.Equal(t, snap.Version, same.Version)
}

func TestSubscribeKeepsOnlyLatest(t *testing.T) {
	s := NewStore()
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		s.apply(func(old []model.Event) ([]model.Event, bool) {
			return schedule.Merge(old, []model.Event{schedule.MapProject(model.ProjectRecord{})}), true
		})
	}

	select {
	case snap := <-ch:
		assert.Equal(t, uint64(3), snap.Version)
		assert.Len(t, snap.Events, 3)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	select {
	case snap := <-ch:
		t.Fatalf("unexpected extra snapshot %d", snap.Version)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := NewStore()
	ch, unsubscribe := s.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing after unsubscribe must not panic.
	s.apply(func(old []model.Event) ([]model.Event, bool) { return old, true })
}
