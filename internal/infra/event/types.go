package event

import (
	"context"
	"errors"
	"fmt"
)

const HeaderEventID = "x-event-id"

type MessageHandler func(ctx context.Context, msg []byte, headers map[string]interface{}) error

// ErrPermanent marks a failure that redelivery cannot fix, such as a payload
// that does not decode. Such messages are nacked without requeue.
var ErrPermanent = errors.New("permanent failure")

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
