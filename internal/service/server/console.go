package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/alarm-scheduler/internal/command"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/view"
)

// prompt is printed before every console line.
const prompt = "Alarm> "

// errConsoleClosed ends the process once console input is exhausted.
var errConsoleClosed = errors.New("console input closed")

// requester is the part of the scheduler the console drives.
type requester interface {
	Submit(ctx context.Context, req alarm.Request) (alarm.Alarm, error)
	Modify(ctx context.Context, req alarm.Request) (alarm.Alarm, error)
	Cancel(ctx context.Context, alarmID int64) error
	List(ctx context.Context) []alarm.Alarm
}

// console reads command lines and turns them into scheduler requests.
// Results are reported by the event sinks; the console only prints
// rejections and listings.
type console struct {
	scheduler  requester
	in         io.Reader
	out        io.Writer
	now        func() time.Time
	maxMessage int
}

func newConsole(scheduler requester, in io.Reader, out io.Writer, maxMessage int) *console {
	return &console{
		scheduler:  scheduler,
		in:         in,
		out:        out,
		now:        time.Now,
		maxMessage: maxMessage,
	}
}

// run processes lines until the input ends or ctx is cancelled. Reading
// happens on a separate goroutine so cancellation does not wait for input.
func (c *console) run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "console")

	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		_, _ = fmt.Fprint(c.out, prompt)

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(c.out)

				return errConsoleClosed
			}

			c.handle(ctx, line)
		}
	}
}

// handle executes one line.
func (c *console) handle(ctx context.Context, line string) {
	if line == "" {
		return
	}

	req, err := command.Parse(line, c.maxMessage)
	if err != nil {
		logger.DebugKV(ctx, "Rejected console line", "line", line, "error", err)
		_, _ = fmt.Fprintf(c.out, "Bad Command: %v\n", err)

		return
	}

	switch req.Command {
	case alarm.CommandStart:
		_, err = c.scheduler.Submit(ctx, req)
	case alarm.CommandChange:
		_, err = c.scheduler.Modify(ctx, req)
	case alarm.CommandCancel:
		err = c.scheduler.Cancel(ctx, req.AlarmID)
	case alarm.CommandList:
		view.Alarms(c.out, c.scheduler.List(ctx), c.now())
	}

	if err != nil {
		_, _ = fmt.Fprintf(c.out, "%s rejected: %v\n", req.Command, err)
	}
}
