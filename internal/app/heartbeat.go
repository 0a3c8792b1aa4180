package app

import (
	"context"
	"time"

	"github.com/DioGolang/GoMonitor/pkg/logger"
)

// Heartbeat logs a tick every interval until ctx is done.
func Heartbeat(ctx context.Context, log logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(context.Background(), "Heartbeat stopped")
			return
		case <-ticker.C:
			log.Info(ctx, "Tick...")
		}
	}
}
