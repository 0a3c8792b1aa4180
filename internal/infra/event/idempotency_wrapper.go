package event

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/DioGolang/GoMonitor/pkg/logger"
)

type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// WrapIdempotency drops deliveries whose event id was already claimed within
// ttl. Messages without an x-event-id are keyed by the hash of their body.
// A failed handler releases its claim so that a redelivery can run again.
func WrapIdempotency(
	log logger.Logger,
	store IdempotencyStore,
	handlerName string,
	ttl time.Duration,
	next MessageHandler,
) MessageHandler {
	return func(ctx context.Context, msg []byte, headers map[string]interface{}) error {
		var eventID string

		if v, ok := headers[HeaderEventID]; ok {
			eventID = fmt.Sprintf("%v", v)
		}

		if eventID == "" {
			hash := sha256.Sum256(msg)
			eventID = fmt.Sprintf("hash:%x", hash)
		}

		key := fmt.Sprintf("dedup:%s:%s", handlerName, eventID)

		saved, err := store.SetNX(ctx, key, "processing", ttl)
		if err != nil {
			// Fail closed: processing without the guard risks duplicates.
			log.Error(ctx, "Idempotency store unavailable",
				logger.String("key", key),
				logger.WithError(err))
			return fmt.Errorf("idempotency store unavailable: %w", err)
		}

		if !saved {
			log.Info(ctx, "Duplicate event dropped",
				logger.String("handler", handlerName),
				logger.String("event_id", eventID),
			)
			return nil
		}

		err = next(ctx, msg, headers)
		if err != nil {
			log.Warn(ctx, "Handler failed, releasing idempotency key",
				logger.String("key", key),
				logger.WithError(err),
			)

			// The delivery context may already be cancelled.
			if delErr := store.Del(context.WithoutCancel(ctx), key); delErr != nil {
				log.Error(ctx, "Failed to release idempotency key",
					logger.String("key", key),
					logger.WithError(delErr),
				)
			}
		}

		return err
	}
}
