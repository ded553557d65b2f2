// internal/message/message.go
//
// Outbound email.
//
// Context
//   The booking dispatcher hands each notification to a Sender and waits for
//   the provider's receipt.  Two senders exist: GmailSender for production
//   and LogSender, which writes the message to the zap log and succeeds.
//   LogSender is selected when no provider credentials are configured, so a
//   developer machine can walk the whole booking flow without sending mail.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is one outbound message.  HTML is required; Text is optional and is
// sent as the plain alternative when present.
type Email struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Receipt is the provider's answer for one accepted message.
type Receipt struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId,omitempty"`
	Provider string   `json:"provider"`
	To       []string `json:"to"`
}

// Sender delivers one email per call.  Implementations make exactly one
// provider attempt.
type Sender interface {
	Send(ctx context.Context, e Email) (Receipt, error)
}

// ErrNoRecipient is returned for an Email without addresses.
var ErrNoRecipient = errors.New("message: no recipient")

// Validate checks the fields every provider needs.
func (e Email) Validate() error {
	if len(e.To) == 0 {
		return ErrNoRecipient
	}
	for _, to := range e.To {
		if strings.ContainsAny(to, "\r\n") {
			return fmt.Errorf("message: invalid recipient %q", to)
		}
	}
	if strings.ContainsAny(e.Subject+e.From+e.ReplyTo, "\r\n") {
		return errors.New("message: header contains line break")
	}
	if e.HTML == "" {
		return errors.New("message: empty body")
	}
	return nil
}

// MIME renders the RFC 5322 message.  A Text body becomes the plain part of
// a multipart/alternative message with HTML as the alternative.
func (e Email) MIME() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	m := mail.NewMsg()
	if e.From != "" {
		if err := m.From(e.From); err != nil {
			return nil, fmt.Errorf("message: from: %w", err)
		}
	}
	if err := m.To(e.To...); err != nil {
		return nil, fmt.Errorf("message: to: %w", err)
	}
	if e.ReplyTo != "" {
		if err := m.ReplyTo(e.ReplyTo); err != nil {
			return nil, fmt.Errorf("message: reply-to: %w", err)
		}
	}
	m.Subject(e.Subject)
	m.SetDate()
	m.SetMessageID()
	if e.Text != "" {
		m.SetBodyString(mail.TypeTextPlain, e.Text)
		m.AddAlternativeString(mail.TypeTextHTML, e.HTML)
	} else {
		m.SetBodyString(mail.TypeTextHTML, e.HTML)
	}

	var b bytes.Buffer
	if _, err := m.WriteTo(&b); err != nil {
		return nil, fmt.Errorf("message: render: %w", err)
	}
	return b.Bytes(), nil
}

/*──────────────────────────── LogSender ────────────────────────────*/

// LogSender logs the email and returns a synthetic receipt.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, e Email) (Receipt, error) {
	if err := e.Validate(); err != nil {
		return Receipt{}, err
	}
	id := uuid.NewString()
	zap.S().Infow("email (log only)",
		"id", id,
		"to", e.To,
		"subject", e.Subject,
		"html_bytes", len(e.HTML),
	)
	return Receipt{ID: id, Provider: "log", To: e.To}, nil
}
