package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransport matches every *SendError.
var ErrTransport = errors.New("transport failure")

// Push is one outbound notification as handed to a transport.
type Push struct {
	Title string
	Body  string
	// APIKey identifies the sending application (source credential).
	APIKey string
	// UserKey identifies the receiving account or group (destination credential).
	UserKey string
}

// Sender delivers a Push. A nil error means the platform accepted it.
// Implementations must bound every call with a timeout.
type Sender interface {
	Send(ctx context.Context, p Push) error
}

// SendError reports a failed delivery.
type SendError struct {
	Driver string
	// Status is the platform status code, 0 when the request never completed.
	Status int
	// Temporary is true for failures worth retrying later (network, 429, 5xx).
	Temporary bool
	Err       error
}

func (e *SendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Driver, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Driver, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

func (e *SendError) Is(target error) bool { return target == ErrTransport }

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, p Push) error

func (f SenderFunc) Send(ctx context.Context, p Push) error { return f(ctx, p) }
