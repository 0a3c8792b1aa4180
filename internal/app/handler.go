package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DioGolang/GoMonitor/internal/infra/event"
)

type WorkRequest struct {
	WorkName string `json:"work_name"`
	Jobs     int    `json:"jobs"`
}

// WorkRequestHandler runs the work described by each message. Payloads that
// do not decode, or that ask for an impossible number of jobs, are permanent
// failures.
func WorkRequestHandler(w *Worker) event.MessageHandler {
	return func(ctx context.Context, msg []byte, _ map[string]interface{}) error {
		var req WorkRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			return event.Permanent(fmt.Errorf("decode work request: %w", err))
		}
		if req.WorkName == "" {
			return event.Permanent(errors.New("work request without work_name"))
		}
		if req.Jobs == 0 {
			req.Jobs = RandomJobs()
		}
		if err := w.DoWork(ctx, req.WorkName, req.Jobs); err != nil {
			if errors.Is(err, ErrInvalidJobs) {
				return event.Permanent(err)
			}
			return err
		}
		return nil
	}
}
