package event

import (
	"context"
	"errors"
	"time"

	"github.com/DioGolang/GoMonitor/pkg/logger"
)

// WrapExponentialBackoff retries next up to maxRetries times, doubling the
// wait after each failure. Permanent failures are returned immediately.
func WrapExponentialBackoff(
	log logger.Logger,
	handlerName string,
	maxRetries int,
	baseWait time.Duration,
	next MessageHandler,
) MessageHandler {
	return func(ctx context.Context, msg []byte, headers map[string]interface{}) error {
		var err error
		wait := baseWait
		for attempt := 0; attempt <= maxRetries; attempt++ {
			err = next(ctx, msg, headers)
			if err == nil || errors.Is(err, ErrPermanent) {
				return err
			}
			if attempt == maxRetries {
				break
			}

			log.Warn(ctx, "Transient failure, retrying...",
				logger.String("handler", handlerName),
				logger.Int("attempt", attempt+1),
				logger.Duration("wait", wait),
				logger.WithError(err),
			)

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			wait *= 2
		}

		log.Error(ctx, "Max retries reached, giving up.",
			logger.String("handler", handlerName),
			logger.Int("retries", maxRetries),
			logger.WithError(err),
		)
		return err
	}
}
