package scheduler

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// Store is the authoritative collection of pending alarms.
//
// Alarms are indexed by id and kept in a global min-heap ordered by due time
// (ties by id) plus one min-heap per group, so every operation is O(log n).
// Store is not safe for concurrent use: the Scheduler mutex guards it.
// Values returned by the store are copies.
type Store struct {
	// byID maps alarm id to its entry.
	byID map[int64]*entry
	// due orders all entries by due time.
	due *entryHeap
	// groups orders the entries of each non-empty group by due time.
	groups map[int64]*entryHeap
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byID:   make(map[int64]*entry),
		due:    newDueHeap(),
		groups: make(map[int64]*entryHeap),
	}
}

// Insert adds a new alarm. It fails with alarm.ErrDuplicateID if the id is pending.
func (s *Store) Insert(a alarm.Alarm) error {
	if _, ok := s.byID[a.ID]; ok {
		return fmt.Errorf("insert alarm %d: %w", a.ID, alarm.ErrDuplicateID)
	}

	e := &entry{
		alarm:      a,
		index:      -1,
		groupIndex: -1,
	}

	s.byID[a.ID] = e
	heap.Push(s.due, e)
	heap.Push(s.groupHeap(a.GroupID), e)

	return nil
}

// Remove detaches and returns the alarm with the given id.
func (s *Store) Remove(id int64) (alarm.Alarm, bool) {
	e, ok := s.byID[id]
	if !ok {
		return alarm.Alarm{}, false
	}

	s.detach(e)

	return e.alarm, true
}

// Update replaces the mutable fields of a pending alarm in place and returns
// its old and new group. The tag becomes TagGroupChanged when the group
// differs, TagMessageChanged otherwise.
func (s *Store) Update(id int64, fields alarm.Fields) (oldGroup, newGroup int64, err error) {
	e, ok := s.byID[id]
	if !ok {
		return 0, 0, fmt.Errorf("update alarm %d: %w", id, alarm.ErrNotFound)
	}

	oldGroup = e.alarm.GroupID
	newGroup = fields.GroupID

	e.alarm.Message = fields.Message
	e.alarm.Seconds = fields.Seconds
	e.alarm.DueAt = fields.DueAt

	if oldGroup == newGroup {
		e.alarm.Tag = alarm.TagMessageChanged

		heap.Fix(s.due, s.mustIndex(e))
		heap.Fix(s.groups[oldGroup], s.mustGroupIndex(e))

		return oldGroup, newGroup, nil
	}

	// Leave the old group before the group id changes.
	s.leaveGroup(e)

	e.alarm.GroupID = newGroup
	e.alarm.Tag = alarm.TagGroupChanged

	heap.Fix(s.due, s.mustIndex(e))
	heap.Push(s.groupHeap(newGroup), e)

	return oldGroup, newGroup, nil
}

// PeekMin returns the alarm due first without removing it.
func (s *Store) PeekMin() (alarm.Alarm, bool) {
	e := s.due.peek()
	if e == nil {
		return alarm.Alarm{}, false
	}

	return e.alarm, true
}

// ExtractMin removes and returns the alarm due first.
func (s *Store) ExtractMin() (alarm.Alarm, bool) {
	e := s.due.peek()
	if e == nil {
		return alarm.Alarm{}, false
	}

	s.detach(e)

	return e.alarm, true
}

// Find returns the alarm with the given id.
func (s *Store) Find(id int64) (alarm.Alarm, bool) {
	e, ok := s.byID[id]
	if !ok {
		return alarm.Alarm{}, false
	}

	return e.alarm, true
}

// IsEmpty reports whether no alarm is pending.
func (s *Store) IsEmpty() bool {
	return len(s.byID) == 0
}

// Len returns the number of pending alarms.
func (s *Store) Len() int {
	return len(s.byID)
}

// GroupHead returns the alarm of the group that is due first.
func (s *Store) GroupHead(groupID int64) (alarm.Alarm, bool) {
	h, ok := s.groups[groupID]
	if !ok {
		return alarm.Alarm{}, false
	}

	return h.peek().alarm, true
}

// GroupLen returns the number of pending alarms in the group.
func (s *Store) GroupLen(groupID int64) int {
	h, ok := s.groups[groupID]
	if !ok {
		return 0
	}

	return h.Len()
}

// Snapshot returns copies of all pending alarms in due order.
func (s *Store) Snapshot() []alarm.Alarm {
	result := make([]alarm.Alarm, 0, len(s.byID))
	for _, e := range s.byID {
		result = append(result, e.alarm)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Before(&result[j])
	})

	return result
}

// verify checks the structural invariants of the store.
func (s *Store) verify() error {
	if s.due.Len() != len(s.byID) {
		return fmt.Errorf("due heap holds %d entries, index holds %d", s.due.Len(), len(s.byID))
	}

	grouped := 0

	for groupID, h := range s.groups {
		if h.Len() == 0 {
			return fmt.Errorf("group %d heap is empty but still registered", groupID)
		}

		for i, e := range h.items {
			if e.groupIndex != i || e.alarm.GroupID != groupID {
				return fmt.Errorf("alarm %d misplaced in group %d heap", e.alarm.ID, groupID)
			}
		}

		grouped += h.Len()
	}

	if grouped != len(s.byID) {
		return fmt.Errorf("group heaps hold %d entries, index holds %d", grouped, len(s.byID))
	}

	for i, e := range s.due.items {
		if e.index != i {
			return fmt.Errorf("alarm %d has stale due index %d, expected %d", e.alarm.ID, e.index, i)
		}

		if i > 0 && e.alarm.Before(&s.due.items[(i-1)/2].alarm) {
			return fmt.Errorf("alarm %d precedes its heap parent", e.alarm.ID)
		}
	}

	return nil
}

// detach removes the entry from the index and both heaps.
func (s *Store) detach(e *entry) {
	s.due.remove(s.mustIndex(e))
	s.leaveGroup(e)
	delete(s.byID, e.alarm.ID)
}

// leaveGroup removes the entry from its group heap and drops empty groups.
func (s *Store) leaveGroup(e *entry) {
	groupID := e.alarm.GroupID

	h, ok := s.groups[groupID]
	if !ok {
		panic(fmt.Sprintf("scheduler: alarm %d references missing group %d", e.alarm.ID, groupID))
	}

	h.remove(s.mustGroupIndex(e))

	if h.Len() == 0 {
		delete(s.groups, groupID)
	}
}

// groupHeap returns the heap of the group, creating it when needed.
func (s *Store) groupHeap(groupID int64) *entryHeap {
	h, ok := s.groups[groupID]
	if !ok {
		h = newGroupHeap()
		s.groups[groupID] = h
	}

	return h
}

func (s *Store) mustIndex(e *entry) int {
	if e.index < 0 || e.index >= s.due.Len() || s.due.items[e.index] != e {
		panic(fmt.Sprintf("scheduler: alarm %d has corrupt due index %d", e.alarm.ID, e.index))
	}

	return e.index
}

func (s *Store) mustGroupIndex(e *entry) int {
	h := s.groups[e.alarm.GroupID]
	if h == nil || e.groupIndex < 0 || e.groupIndex >= h.Len() || h.items[e.groupIndex] != e {
		panic(fmt.Sprintf("scheduler: alarm %d has corrupt group index %d", e.alarm.ID, e.groupIndex))
	}

	return e.groupIndex
}
