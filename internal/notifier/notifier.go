package notifier

import (
	"context"
	"fmt"
)

// Channel delivers rendered notification text to a customer and
// returns the delivery id assigned by the external service.
type Channel interface {
	Send(ctx context.Context, recipient, text string) (string, error)
}

// ChannelError marks transport or timeout failures. These are always
// retryable; the dispatcher turns them into failed message state
// instead of propagating them.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s channel: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
