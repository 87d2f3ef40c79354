// Package alarm contains core domain types for the alarm scheduler.
//
// It defines Alarm (a pending timed request owned by the scheduler store),
// Request (a validated Start/Change/Cancel command), the RevisionTag that
// drives display wording, the event taxonomy emitted by the scheduler and the
// recoverable error sentinels returned to callers.
package alarm
