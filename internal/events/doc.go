// Package events routes scheduler events to their consumers.
//
// A Sink receives every event; Multi fans one stream out to several sinks,
// LogSink writes events to the context logger, WriterSink prints the console
// wording, and Broker hands events to dynamic subscribers such as gRPC
// watch streams.
package events
