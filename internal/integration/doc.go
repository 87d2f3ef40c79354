// Package integration holds end-to-end tests that run the full alarm-scheduler
// process and drive it through alarm-ctl's client and the REST front door.
package integration
