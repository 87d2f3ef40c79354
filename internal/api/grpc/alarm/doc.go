// Package alarm implements the gRPC transport of the scheduler.
//
// Server adapts the alarm.v1.AlarmScheduler messages to the domain types,
// calls into the scheduler and maps domain errors to gRPC status codes.
// Watch streams events from an events.Broker subscription.
package alarm
