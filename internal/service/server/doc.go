// Package server wires the alarm-scheduler process: configuration, logging,
// the scheduler with its event sinks, the gRPC and REST servers and the
// optional interactive console.
package server
