package notifier

import "context"

// TextNotifier is the minimal push surface components depend on.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Noop drops every message.
type Noop struct{}

func (Noop) SendText(context.Context, string) error { return nil }
