package queue

import "context"

// Client enqueues generation jobs for the livebook worker. A nil Client
// means jobs run in-process instead.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
