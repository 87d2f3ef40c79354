// Package client implements alarm-ctl: a gRPC client wrapper with call
// timeouts and caller identification, and the command runners behind each
// alarm-ctl sub-command.
package client
