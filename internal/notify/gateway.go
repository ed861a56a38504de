// Package notify implements outbound notification delivery: a FIFO queue
// with bounded retries and pacing in front of a messaging gateway.
package notify

import "context"

// Gateway sends a formatted text message to a destination. Sends may fail
// transiently; the delivery queue owns the retry policy.
type Gateway interface {
	Send(ctx context.Context, destination, body string) error
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, destination, body string) error

// Send calls f.
func (f GatewayFunc) Send(ctx context.Context, destination, body string) error {
	return f(ctx, destination, body)
}
