// internal/message/gmail.go
//
// Gmail API sender.  Authenticates with an OAuth2 refresh token for the
// sending mailbox and posts each message through users.messages.send.

package message

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailConfig holds the OAuth client and mailbox identity.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	From         string // "Acme Plumbing <bookings@example.com.au>"
}

// GmailSender implements Sender.
type GmailSender struct {
	svc  *gmail.Service
	from string
}

var _ Sender = (*GmailSender)(nil)

// NewGmailSender builds a sender from OAuth credentials.  Extra client
// options are appended, which tests use to point at a fake endpoint.
func NewGmailSender(ctx context.Context, cfg GmailConfig, opts ...option.ClientOption) (*GmailSender, error) {
	if len(opts) == 0 {
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		}
		ts := oc.TokenSource(ctx, &oauth2.Token{
			RefreshToken: cfg.RefreshToken,
			Expiry:       time.Now(), // force refresh on first use
		})
		opts = []option.ClientOption{option.WithTokenSource(ts)}
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail: new service: %w", err)
	}
	return &GmailSender{svc: svc, from: cfg.From}, nil
}

// Send implements Sender.
func (g *GmailSender) Send(ctx context.Context, e Email) (Receipt, error) {
	if e.From == "" {
		e.From = g.from
	}
	raw, err := e.MIME()
	if err != nil {
		return Receipt{}, err
	}
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	out, err := g.svc.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return Receipt{}, fmt.Errorf("gmail: send: %w", err)
	}
	return Receipt{ID: out.Id, ThreadID: out.ThreadId, Provider: "gmail", To: e.To}, nil
}
