// Package queue dispatches analysis job messages to a worker backend.
package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Handler consumes one delivered message.
type Handler func(ctx context.Context, msg Message) error
