package scheduler

import (
	"fmt"
	"sort"
)

// GroupStatus describes one active group.
type GroupStatus struct {
	// GroupID identifies the group.
	GroupID int64
	// LiveCount is the number of pending alarms in the group.
	LiveCount int
	// WorkerID identifies the display worker bound to the group.
	WorkerID uint64
}

// groupEntry is the registry record of an active group.
type groupEntry struct {
	// worker is the display worker bound to the group.
	worker *Worker
	// liveCount is the number of pending alarms in the group.
	liveCount int
}

// Registry tracks live alarm counts per group and owns one display worker per
// active group. A worker exists for a group iff its count is above zero.
// Registry is not safe for concurrent use: the Scheduler mutex guards it
// together with the Store.
type Registry struct {
	// groups holds active groups only.
	groups map[int64]*groupEntry
	// spawn creates and starts the worker of a newly active group.
	spawn func(groupID int64) *Worker
}

// NewRegistry creates a registry that starts workers with spawn.
func NewRegistry(spawn func(groupID int64) *Worker) *Registry {
	return &Registry{
		groups: make(map[int64]*groupEntry),
		spawn:  spawn,
	}
}

// OnAlarmAdded increments the live count of the group. On the 0->1
// transition it spawns the group worker and returns it.
func (r *Registry) OnAlarmAdded(groupID int64) *Worker {
	if g, ok := r.groups[groupID]; ok {
		g.liveCount++

		return nil
	}

	w := r.spawn(groupID)
	r.groups[groupID] = &groupEntry{
		worker:    w,
		liveCount: 1,
	}

	return w
}

// OnAlarmRemoved decrements the live count of the group. On the 1->0
// transition it asks the worker to stop, drops the group and returns the
// worker. The worker exits on its own next tick.
func (r *Registry) OnAlarmRemoved(groupID int64) *Worker {
	g, ok := r.groups[groupID]
	if !ok || g.liveCount <= 0 {
		panic(fmt.Sprintf("scheduler: live count of group %d would drop below zero", groupID))
	}

	g.liveCount--
	if g.liveCount > 0 {
		return nil
	}

	delete(r.groups, groupID)
	g.worker.requestStop()

	return g.worker
}

// FindWorker returns the worker bound to the group.
func (r *Registry) FindWorker(groupID int64) (*Worker, bool) {
	g, ok := r.groups[groupID]
	if !ok {
		return nil, false
	}

	return g.worker, true
}

// Count returns the live count of the group.
func (r *Registry) Count(groupID int64) int {
	if g, ok := r.groups[groupID]; ok {
		return g.liveCount
	}

	return 0
}

// Len returns the number of active groups.
func (r *Registry) Len() int {
	return len(r.groups)
}

// Groups returns the status of every active group ordered by group id.
func (r *Registry) Groups() []GroupStatus {
	result := make([]GroupStatus, 0, len(r.groups))
	for groupID, g := range r.groups {
		result = append(result, GroupStatus{
			GroupID:   groupID,
			LiveCount: g.liveCount,
			WorkerID:  g.worker.ID(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].GroupID < result[j].GroupID
	})

	return result
}
