package alarm

import (
	"fmt"
	"time"
)

// describe formats events with the wording of the console program.
func describe(e Event) string {
	at := e.OccurredAt().Unix()

	switch ev := e.(type) {
	case AlarmInserted:
		return fmt.Sprintf("Alarm(%d) Inserted Into Alarm List at %d: Group(%d) due %s %s",
			ev.AlarmID, at, ev.GroupID, ev.DueAt.Format(time.RFC3339), ev.Message)
	case AlarmChanged:
		return fmt.Sprintf("Alarm(%d) Changed at %d: Group(%d) -> Group(%d) %s",
			ev.AlarmID, at, ev.OldGroupID, ev.NewGroupID, ev.Message)
	case AlarmCancelled:
		return fmt.Sprintf("Alarm(%d) Cancelled at %d: Group(%d) %s", ev.AlarmID, at, ev.GroupID, ev.Message)
	case AlarmExpired:
		return fmt.Sprintf("Alarm Thread Removed Alarm(%d) at %d: Group(%d) %d %s",
			ev.AlarmID, at, ev.GroupID, ev.Seconds, ev.Message)
	case DisplayTick:
		return describeTick(ev, at)
	case WorkerCreated:
		return fmt.Sprintf("Alarm Thread Created New Display Alarm Thread %d For Group(%d) at %d",
			ev.WorkerID, ev.GroupID, at)
	case WorkerTerminated:
		return fmt.Sprintf("Alarm Thread Terminated Display Thread %d For Group(%d) at %d",
			ev.WorkerID, ev.GroupID, at)
	default:
		return fmt.Sprintf("%s at %d: %v", e.Kind(), at, e.Fields())
	}
}

func describeTick(ev DisplayTick, at int64) string {
	switch ev.Tag {
	case TagGroupChanged:
		return fmt.Sprintf("Display Thread %d Has Stopped Printing Message of Alarm(%d) at %d: Changed Group(%d) %s",
			ev.WorkerID, ev.AlarmID, at, ev.GroupID, ev.Message)
	case TagMessageChanged:
		return fmt.Sprintf("Display Thread %d Starts to Print Changed Message Alarm(%d) at %d: Group(%d) %s",
			ev.WorkerID, ev.AlarmID, at, ev.GroupID, ev.Message)
	default:
		return fmt.Sprintf("Alarm(%d) Printed by Alarm Display Thread %d at %d: Group(%d) %s",
			ev.AlarmID, ev.WorkerID, at, ev.GroupID, ev.Message)
	}
}
