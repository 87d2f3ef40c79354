package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/alarm-scheduler/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-scheduler/internal/api/rest"
	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/events"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/metrics"
	pb "github.com/oshokin/alarm-scheduler/internal/pb/v1"
	"github.com/oshokin/alarm-scheduler/internal/repository/journal"
	"github.com/oshokin/alarm-scheduler/internal/scheduler"
)

// Options controls the alarm-scheduler process.
type Options struct {
	// Overrides holds flag and environment values layered over the file.
	Overrides *viper.Viper
	// Stdin feeds the console; defaults to os.Stdin.
	Stdin io.Reader
	// Stdout receives console output; defaults to os.Stdout.
	Stdout io.Writer
	// Ready is called with the bound addresses once the servers listen.
	Ready func(Addresses)
	// ConfigPath specifies the path to settings YAML file. A missing file means defaults.
	ConfigPath string
	// Console enables the interactive Alarm> prompt.
	Console bool
}

// Addresses are the listen addresses actually bound.
type Addresses struct {
	GRPC string
	// HTTP is empty when the REST front door is disabled.
	HTTP string
}

// Run starts the scheduler and its servers and blocks until ctx is cancelled,
// a server fails or the console input ends.
func Run(ctx context.Context, opts *Options) error {
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	level, _ := logger.ParseLogLevel(settings.LogLevel)
	format, _ := logger.ParseFormat(settings.LogFormat)
	logger.Configure(level, format)

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-scheduler")

	broker := events.NewBroker(events.DefaultSubscriptionBuffer)
	collector := metrics.New()
	sinks := []events.Sink{events.NewLogSink(), collector, broker}

	if settings.JournalPath != "" {
		repo, err := journal.Open(ctx, settings.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}

		defer func() {
			if err := repo.Close(); err != nil {
				logger.ErrorKV(ctx, "Failed to close journal", "error", err)
			}
		}()

		sinks = append(sinks, repo)

		logger.InfoKV(ctx, "Journal opened", "path", settings.JournalPath, "run_id", repo.RunID())
	}

	var stdout io.Writer = os.Stdout
	if opts.Stdout != nil {
		stdout = opts.Stdout
	}

	// The console and the event printer share the output.
	stdout = &syncWriter{w: stdout}

	if opts.Console {
		sinks = append(sinks, events.NewWriterSink(stdout))
	}

	sched := scheduler.New(
		scheduler.WithSink(events.NewMulti(sinks...)),
		scheduler.WithDisplayInterval(settings.DisplayInterval),
		scheduler.WithMaxMessageLength(settings.MaxMessageLength),
	)

	if err = sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
		defer cancel()

		if err := sched.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "Scheduler did not stop in time", "error", err)
		}
	}()

	return serve(ctx, settings, opts, sched, broker, collector, stdout)
}

// serve runs the servers and the console until one of them stops.
func serve(
	ctx context.Context,
	settings *config.Config,
	opts *Options,
	sched *scheduler.Scheduler,
	broker *events.Broker,
	collector *metrics.Collector,
	stdout io.Writer,
) error {
	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", settings.GRPCAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.GRPCAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcapi.LoggingInterceptor))
	pb.RegisterAlarmSchedulerServer(grpcServer, grpcapi.NewServer(sched, broker))

	addresses := Addresses{GRPC: grpcListener.Addr().String()}

	var (
		httpServer   *http.Server
		httpListener net.Listener
	)

	if settings.HTTPAddress != "" {
		httpListener, err = lc.Listen(ctx, "tcp", settings.HTTPAddress)
		if err != nil {
			_ = grpcListener.Close()

			return fmt.Errorf("listen on %s: %w", settings.HTTPAddress, err)
		}

		httpServer = &http.Server{
			Handler:           rest.NewRouter(rest.Config{Service: sched, Metrics: collector.Handler()}),
			ReadHeaderTimeout: settings.Timeout,
			BaseContext:       func(net.Listener) context.Context { return logger.WithName(ctx, "rest") },
		}
		addresses.HTTP = httpListener.Addr().String()
	}

	logger.InfoKV(ctx, "Alarm scheduler listening", "grpc_address", addresses.GRPC, "http_address", addresses.HTTP)

	if opts.Ready != nil {
		opts.Ready(addresses)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")

		stopped := make(chan struct{})

		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		// Open Watch streams only end when forced.
		select {
		case <-stopped:
		case <-time.After(settings.Timeout):
			logger.WarnKV(ctx, "Forcing gRPC server stop", "timeout", settings.Timeout)
			grpcServer.Stop()
		}

		return nil
	})

	if httpServer != nil {
		g.Go(func() error {
			if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
			defer cancel()

			logger.Info(ctx, "Shutting down HTTP server")

			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if opts.Console {
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}

		g.Go(func() error {
			return newConsole(sched, stdin, stdout, settings.MaxMessageLength).run(gctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, errConsoleClosed) {
		err = nil
	}

	logger.Info(ctx, "Alarm scheduler stopped")

	return err
}

// loadSettings reads the configuration file and applies overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Overrides != nil {
		if err = config.Overlay(settings, opts.Overrides); err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	return settings, nil
}

// syncWriter serializes writes from several goroutines.
type syncWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}
