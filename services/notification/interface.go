package notification

import "context"

// Sink is the fire-and-forget notification outlet. The core never awaits a
// result; failures are logged and swallowed.
type Sink interface {
	Notify(ctx context.Context, recipientID, kind string, payload map[string]string)
}

// TokenSource resolves a recipient to their push token.
type TokenSource interface {
	PushToken(ctx context.Context, recipientID string) (string, error)
}
