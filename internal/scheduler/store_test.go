package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

//nolint:gochecknoglobals // Fixed reference instant for store tests.
var epoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func newTestAlarm(id, group, seconds int64) alarm.Alarm {
	return alarm.Alarm{
		DueAt:   epoch.Add(time.Duration(seconds) * time.Second),
		Message: "alarm",
		ID:      id,
		GroupID: group,
		Seconds: seconds,
	}
}

func drain(t *testing.T, s *Store) []int64 {
	t.Helper()

	var ids []int64

	for !s.IsEmpty() {
		a, ok := s.ExtractMin()
		require.True(t, ok)
		require.NoError(t, s.verify())

		ids = append(ids, a.ID)
	}

	return ids
}

// TestStoreOrdersByDueTimeThenID checks extraction order, including ties.
func TestStoreOrdersByDueTimeThenID(t *testing.T) {
	t.Parallel()

	s := NewStore()

	require.NoError(t, s.Insert(newTestAlarm(5, 1, 30)))
	require.NoError(t, s.Insert(newTestAlarm(3, 2, 10)))
	require.NoError(t, s.Insert(newTestAlarm(1, 1, 10)))
	require.NoError(t, s.Insert(newTestAlarm(4, 3, 0)))
	require.NoError(t, s.Insert(newTestAlarm(2, 2, 20)))
	require.NoError(t, s.verify())

	head, ok := s.PeekMin()
	require.True(t, ok)
	require.Equal(t, int64(4), head.ID)
	require.Equal(t, 5, s.Len())

	require.Equal(t, []int64{4, 1, 3, 2, 5}, drain(t, s))

	_, ok = s.PeekMin()
	require.False(t, ok)

	_, ok = s.ExtractMin()
	require.False(t, ok)
}

// TestStoreRejectsDuplicateID ensures a pending id cannot be inserted twice.
func TestStoreRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	s := NewStore()

	require.NoError(t, s.Insert(newTestAlarm(1, 1, 10)))
	require.ErrorIs(t, s.Insert(newTestAlarm(1, 2, 5)), alarm.ErrDuplicateID)

	a, ok := s.Find(1)
	require.True(t, ok)
	require.Equal(t, int64(1), a.GroupID)
	require.Equal(t, 1, s.Len())
}

// TestStoreRemoveIsIdempotent checks removal by id and a second removal.
func TestStoreRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewStore()

	require.NoError(t, s.Insert(newTestAlarm(1, 1, 10)))
	require.NoError(t, s.Insert(newTestAlarm(2, 1, 20)))

	removed, ok := s.Remove(1)
	require.True(t, ok)
	require.Equal(t, int64(1), removed.ID)
	require.NoError(t, s.verify())

	_, ok = s.Remove(1)
	require.False(t, ok)

	head, ok := s.GroupHead(1)
	require.True(t, ok)
	require.Equal(t, int64(2), head.ID)
	require.Equal(t, 1, s.GroupLen(1))
}

// TestStoreUpdateSameGroup checks reordering and the MessageChanged tag.
func TestStoreUpdateSameGroup(t *testing.T) {
	t.Parallel()

	s := NewStore()

	require.NoError(t, s.Insert(newTestAlarm(1, 1, 10)))
	require.NoError(t, s.Insert(newTestAlarm(2, 1, 20)))

	oldGroup, newGroup, err := s.Update(2, alarm.Fields{
		DueAt:   epoch.Add(5 * time.Second),
		Message: "sooner",
		GroupID: 1,
		Seconds: 5,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), oldGroup)
	require.Equal(t, int64(1), newGroup)
	require.NoError(t, s.verify())

	head, ok := s.PeekMin()
	require.True(t, ok)
	require.Equal(t, int64(2), head.ID)
	require.Equal(t, "sooner", head.Message)
	require.Equal(t, alarm.TagMessageChanged, head.Tag)

	groupHead, ok := s.GroupHead(1)
	require.True(t, ok)
	require.Equal(t, int64(2), groupHead.ID)
}

// TestStoreUpdateMovesGroup checks that a group change moves the alarm between group heaps.
func TestStoreUpdateMovesGroup(t *testing.T) {
	t.Parallel()

	s := NewStore()

	require.NoError(t, s.Insert(newTestAlarm(1, 1, 10)))
	require.NoError(t, s.Insert(newTestAlarm(2, 2, 20)))

	oldGroup, newGroup, err := s.Update(1, alarm.Fields{
		DueAt:   epoch.Add(30 * time.Second),
		Message: "moved",
		GroupID: 2,
		Seconds: 30,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), oldGroup)
	require.Equal(t, int64(2), newGroup)
	require.NoError(t, s.verify())

	require.Equal(t, 0, s.GroupLen(1))
	require.Equal(t, 2, s.GroupLen(2))

	_, ok := s.GroupHead(1)
	require.False(t, ok)

	moved, ok := s.Find(1)
	require.True(t, ok)
	require.Equal(t, alarm.TagGroupChanged, moved.Tag)
	require.Equal(t, int64(2), moved.GroupID)

	require.Equal(t, []int64{2, 1}, drain(t, s))
}

// TestStoreUpdateMissing ensures Update reports unknown ids.
func TestStoreUpdateMissing(t *testing.T) {
	t.Parallel()

	s := NewStore()

	_, _, err := s.Update(9, alarm.Fields{GroupID: 1})
	require.ErrorIs(t, err, alarm.ErrNotFound)
}

// TestStoreSnapshotIsOrderedCopy checks that snapshots are sorted and detached from the store.
func TestStoreSnapshotIsOrderedCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()

	for i, seconds := range []int64{40, 10, 30, 20} {
		require.NoError(t, s.Insert(newTestAlarm(int64(i+1), int64(i%2), seconds)))
	}

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 4)

	ids := make([]int64, 0, len(snapshot))
	for _, a := range snapshot {
		ids = append(ids, a.ID)
	}

	require.Equal(t, []int64{2, 4, 3, 1}, ids)

	snapshot[0].Message = "mutated"

	a, ok := s.Find(2)
	require.True(t, ok)
	require.Equal(t, "alarm", a.Message)
}

// TestStoreManyOperationsKeepInvariants interleaves inserts, updates and removals.
func TestStoreManyOperationsKeepInvariants(t *testing.T) {
	t.Parallel()

	s := NewStore()

	for id := range int64(50) {
		require.NoError(t, s.Insert(newTestAlarm(id, id%4, (id*37)%23)))
	}

	for id := int64(0); id < 50; id += 3 {
		_, _, err := s.Update(id, alarm.Fields{
			DueAt:   epoch.Add(time.Duration(id%7) * time.Second),
			Message: "changed",
			GroupID: (id + 1) % 5,
			Seconds: id % 7,
		})
		require.NoError(t, err)
		require.NoError(t, s.verify())
	}

	for id := int64(1); id < 50; id += 4 {
		_, ok := s.Remove(id)
		require.True(t, ok)
		require.NoError(t, s.verify())
	}

	ids := drain(t, s)
	require.Len(t, ids, 50-13)
}
