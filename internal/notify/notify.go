// Package notify delivers out-of-band email: verification codes, pickup codes
// and contact-form messages.
package notify

import "context"

// Attachment is an inline file referenced from the HTML body as cid:<Name>.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Mail struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
	Inline   []Attachment
}

// Notifier sends a mail and returns once the relay accepted or rejected it.
type Notifier interface {
	Send(ctx context.Context, mail Mail) error
}
