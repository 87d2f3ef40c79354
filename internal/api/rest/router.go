package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/scheduler"
	"github.com/oshokin/alarm-scheduler/internal/version"
)

// Service abstracts the scheduler operations the REST API depends on.
type Service interface {
	Submit(ctx context.Context, req alarm.Request) (alarm.Alarm, error)
	Modify(ctx context.Context, req alarm.Request) (alarm.Alarm, error)
	Cancel(ctx context.Context, alarmID int64) error
	Get(ctx context.Context, alarmID int64) (alarm.Alarm, error)
	List(ctx context.Context) []alarm.Alarm
	Groups(ctx context.Context) []scheduler.GroupStatus
}

// Config wires the router.
type Config struct {
	// Service handles the /v1 operations.
	Service Service
	// Metrics serves /metrics; nil leaves the route out.
	Metrics http.Handler
}

// AlarmBody is the JSON view of a pending alarm.
type AlarmBody struct {
	DueAt   time.Time `json:"due_at"`
	Message string    `json:"message"`
	Tag     string    `json:"tag"`
	AlarmID int64     `json:"alarm_id"`
	GroupID int64     `json:"group_id"`
	Seconds int64     `json:"seconds"`
}

// GroupBody is the JSON view of an active group.
type GroupBody struct {
	GroupID   int64  `json:"group_id"`
	LiveCount int    `json:"live_count"`
	WorkerID  uint64 `json:"worker_id"`
}

// StartBody is the payload of POST /v1/alarms.
type StartBody struct {
	Message string `json:"message"`
	AlarmID int64  `json:"alarm_id"`
	GroupID int64  `json:"group_id"`
	Seconds int64  `json:"seconds"`
}

// ChangeBody is the payload of PUT /v1/alarms/{id}.
type ChangeBody struct {
	Message string `json:"message"`
	GroupID int64  `json:"group_id"`
	Seconds int64  `json:"seconds"`
}

type alarmPath struct {
	ID int64 `path:"id" doc:"Alarm identifier"`
}

type alarmOutput struct {
	Body AlarmBody `json:"body"`
}

// NewRouter returns the HTTP handler of the REST front door.
func NewRouter(cfg Config) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	hcfg := huma.DefaultConfig("Alarm Scheduler API", version.Short())
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)

	registerAlarms(huma.NewGroup(api, "/v1"), cfg.Service)

	return router
}

func registerAlarms(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "start-alarm",
		Method:        http.MethodPost,
		Path:          "/alarms",
		Summary:       "Start an alarm",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body StartBody `json:"body"`
	}) (*alarmOutput, error) {
		created, err := svc.Submit(ctx, alarm.Request{
			Message: input.Body.Message,
			AlarmID: input.Body.AlarmID,
			GroupID: input.Body.GroupID,
			Seconds: input.Body.Seconds,
			Command: alarm.CommandStart,
		})
		if err != nil {
			return nil, toHTTPError(ctx, err)
		}

		return &alarmOutput{Body: alarmBody(created)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-alarm",
		Method:      http.MethodPut,
		Path:        "/alarms/{id}",
		Summary:     "Change a pending alarm",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		ID   int64      `path:"id" doc:"Alarm identifier"`
		Body ChangeBody `json:"body"`
	}) (*alarmOutput, error) {
		changed, err := svc.Modify(ctx, alarm.Request{
			Message: input.Body.Message,
			AlarmID: input.ID,
			GroupID: input.Body.GroupID,
			Seconds: input.Body.Seconds,
			Command: alarm.CommandChange,
		})
		if err != nil {
			return nil, toHTTPError(ctx, err)
		}

		return &alarmOutput{Body: alarmBody(changed)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "cancel-alarm",
		Method:        http.MethodDelete,
		Path:          "/alarms/{id}",
		Summary:       "Cancel a pending alarm",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *alarmPath) (*struct{}, error) {
		if err := svc.Cancel(ctx, input.ID); err != nil {
			return nil, toHTTPError(ctx, err)
		}

		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-alarm",
		Method:      http.MethodGet,
		Path:        "/alarms/{id}",
		Summary:     "Get a pending alarm",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *alarmPath) (*alarmOutput, error) {
		a, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHTTPError(ctx, err)
		}

		return &alarmOutput{Body: alarmBody(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-alarms",
		Method:      http.MethodGet,
		Path:        "/alarms",
		Summary:     "List pending alarms in due order",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []AlarmBody `json:"body"`
	}, error) {
		alarms := svc.List(ctx)

		body := make([]AlarmBody, 0, len(alarms))
		for _, a := range alarms {
			body = append(body, alarmBody(a))
		}

		return &struct {
			Body []AlarmBody `json:"body"`
		}{Body: body}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-groups",
		Method:      http.MethodGet,
		Path:        "/groups",
		Summary:     "List active groups",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []GroupBody `json:"body"`
	}, error) {
		groups := svc.Groups(ctx)

		body := make([]GroupBody, 0, len(groups))
		for _, g := range groups {
			body = append(body, GroupBody{
				GroupID:   g.GroupID,
				LiveCount: g.LiveCount,
				WorkerID:  g.WorkerID,
			})
		}

		return &struct {
			Body []GroupBody `json:"body"`
		}{Body: body}, nil
	})
}

func alarmBody(a alarm.Alarm) AlarmBody {
	return AlarmBody{
		DueAt:   a.DueAt,
		Message: a.Message,
		Tag:     a.Tag.String(),
		AlarmID: a.ID,
		GroupID: a.GroupID,
		Seconds: a.Seconds,
	}
}

// toHTTPError maps scheduler errors to status errors.
func toHTTPError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, alarm.ErrInvalidField):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, alarm.ErrDuplicateID):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, alarm.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, scheduler.ErrNotRunning):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		logger.ErrorKV(ctx, "Scheduler request failed", "error", err)

		return huma.Error500InternalServerError("unable to process request")
	}
}

// requestLogger logs one line per request through the context logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.DebugKV(r.Context(), "HTTP request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
