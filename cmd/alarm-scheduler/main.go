// Command alarm-scheduler runs the alarm scheduler with its gRPC and REST front doors.
package main

import "github.com/oshokin/alarm-scheduler/cmd/alarm-scheduler/cmd"

func main() {
	cmd.Execute()
}
