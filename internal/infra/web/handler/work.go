package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/DioGolang/GoMonitor/internal/app"
	"github.com/DioGolang/GoMonitor/internal/infra/event"
	"github.com/DioGolang/GoMonitor/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const maxPublishBody = 1 << 20

type MessagePublisher interface {
	Publish(ctx context.Context, msg event.Message) error
}

type WorkRunner interface {
	DoWork(ctx context.Context, workName string, jobs int) error
}

type Greeting struct {
	Message string `json:"message"`
}

type Work struct {
	Runner     WorkRunner
	Publisher  MessagePublisher
	Exchange   string
	RoutingKey string
	Stop       func()
	Logger     logger.Logger
	Jobs       func() int
}

func NewWorkHandler(runner WorkRunner, publisher MessagePublisher, exchange, routingKey string, stop func(), log logger.Logger) *Work {
	return &Work{
		Runner:     runner,
		Publisher:  publisher,
		Exchange:   exchange,
		RoutingKey: routingKey,
		Stop:       stop,
		Logger:     log,
		Jobs:       app.RandomJobs,
	}
}

func (h *Work) Greet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.Logger.Info(r.Context(), "Greeting request received", logger.String("name", name))
	writeJSON(w, http.StatusOK, Greeting{Message: "Hello " + name})
}

func (h *Work) DoWork(w http.ResponseWriter, r *http.Request) {
	workName := chi.URLParam(r, "work_name")

	if err := h.Runner.DoWork(r.Context(), workName, h.Jobs()); err != nil {
		h.Logger.Warn(r.Context(), "Work failed",
			logger.String("work_name", workName),
			logger.WithError(err),
		)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, "done")
}

// Enqueue publishes a work request for the worker process.
func (h *Work) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.Publisher == nil {
		http.Error(w, "message broker not configured", http.StatusServiceUnavailable)
		return
	}

	req := app.WorkRequest{WorkName: chi.URLParam(r, "work_name")}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPublishBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.WorkName = chi.URLParam(r, "work_name")
	}
	if req.Jobs < 0 || req.Jobs > app.MaxJobs {
		http.Error(w, app.ErrInvalidJobs.Error(), http.StatusBadRequest)
		return
	}

	payload, err := json.Marshal(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = h.Publisher.Publish(r.Context(), event.Message{
		Exchange:    h.Exchange,
		RoutingKey:  h.RoutingKey,
		ContentType: "application/json",
		Body:        payload,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusAccepted, "queued")
}

func (h *Work) StopServer(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info(r.Context(), "Stopping server")
	writeJSON(w, http.StatusOK, "stopping")
	if h.Stop != nil {
		h.Stop()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
