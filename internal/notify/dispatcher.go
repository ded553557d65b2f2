// internal/notify/dispatcher.go
//
// Notification dispatcher.
//
// Context
// -------
// One validated booking produces two emails: a staff alert and a customer
// acknowledgement.  Both are rendered from fixed html/template files, so
// every customer-supplied value is escaped before it reaches a mailbox.
// They are sent one after the other, staff first, with exactly one provider
// attempt each.
//
// Partial failure is reported, not collapsed.  A failed staff email does not
// stop the customer email, and the Outcome records which of the two went
// out.  The HTTP handler turns that into the delivered{admin,customer} map
// so the caller can tell the customer whether the business already has the
// lead.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/tradesite/internal/booking"
	"github.com/yanizio/tradesite/internal/message"
	"github.com/yanizio/tradesite/internal/metrics"
	"github.com/yanizio/tradesite/internal/store"
)

//go:embed templates/*.html
var tplFS embed.FS

var tpl = template.Must(template.ParseFS(tplFS, "templates/*.html"))

// Config names the recipients and the business shown in the emails.
type Config struct {
	AdminTo       []string       // staff inbox(es)
	From          string         // optional, sender default otherwise
	Business      string         // "Acme Plumbing"
	BusinessPhone string         // "1300 000 000"
	Location      *time.Location // ReceivedAt zone, UTC when nil
}

// Recorder persists one dispatch.  *store.Repo implements it.
type Recorder interface {
	Record(ctx context.Context, s store.Submission) error
}

// Lead carries request details shown to staff.  All fields are optional.
type Lead struct {
	IP      string
	Browser string
	OS      string
	Device  string
	Country string
	City    string
	Source  string // "google / cpc / winter", "via facebook.com"
}

// Outcome reports what happened to both emails.
type Outcome struct {
	ID          string
	Admin       *message.Receipt
	Customer    *message.Receipt
	AdminErr    error
	CustomerErr error
}

// OK reports whether both emails were accepted.
func (o Outcome) OK() bool { return o.AdminErr == nil && o.CustomerErr == nil }

// Err summarises the failures, or nil.
func (o Outcome) Err() error {
	var parts []string
	if o.AdminErr != nil {
		parts = append(parts, "admin: "+o.AdminErr.Error())
	}
	if o.CustomerErr != nil {
		parts = append(parts, "customer: "+o.CustomerErr.Error())
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("notify: %s", strings.Join(parts, "; "))
}

// Dispatcher renders and sends booking emails.
type Dispatcher struct {
	sender message.Sender
	cfg    Config
	rec    Recorder
	now    func() time.Time
}

// New returns a dispatcher.  rec may be nil.
func New(sender message.Sender, cfg Config, rec Recorder) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Dispatcher{sender: sender, cfg: cfg, rec: rec, now: time.Now}
}

type view struct {
	P             booking.Payload
	Services      string
	Reference     string
	ReceivedAt    string
	Business      string
	BusinessPhone string
	Lead          *Lead
}

// Dispatch sends the staff email, then the customer email, and logs the
// result.  source labels metrics and the submission log ("api", "form").
func (d *Dispatcher) Dispatch(ctx context.Context, v *booking.Validated, lead *Lead, source string) Outcome {
	p := v.Payload()
	id := uuid.NewString()
	now := d.now()
	out := Outcome{ID: id}

	data := view{
		P:             p,
		Services:      p.ServicesLabel(),
		Reference:     strings.ToUpper(id[:8]),
		ReceivedAt:    now.In(d.cfg.Location).Format("Mon 2 Jan 2006 3:04 PM"),
		Business:      d.cfg.Business,
		BusinessPhone: d.cfg.BusinessPhone,
		Lead:          lead,
	}
	log := zap.S().With("booking_id", id, "source", source)

	// Staff first.
	admin, err := d.render("staff.html", data)
	if err == nil {
		var r message.Receipt
		r, err = d.sender.Send(ctx, message.Email{
			From:    d.cfg.From,
			To:      d.cfg.AdminTo,
			ReplyTo: p.Email,
			Subject: fmt.Sprintf("New booking request from %s", p.Name),
			HTML:    admin,
		})
		if err == nil {
			out.Admin = &r
		}
	}
	out.AdminErr = err
	count(metrics.RecipientAdmin, err)
	if err != nil {
		log.Errorw("staff email failed", "error", err)
	}

	cust, err := d.render("customer.html", data)
	if err == nil {
		var r message.Receipt
		r, err = d.sender.Send(ctx, message.Email{
			From:    d.cfg.From,
			To:      []string{p.Email},
			Subject: fmt.Sprintf("We've received your booking request (%s)", data.Reference),
			HTML:    cust,
		})
		if err == nil {
			out.Customer = &r
		}
	}
	out.CustomerErr = err
	count(metrics.RecipientCustomer, err)
	if err != nil {
		log.Errorw("customer email failed", "error", err)
	}

	if out.OK() {
		log.Infow("booking dispatched", "services", data.Services)
	}
	d.record(ctx, p, out, source, now)
	return out
}

func (d *Dispatcher) render(name string, data view) (string, error) {
	var b bytes.Buffer
	if err := tpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

func (d *Dispatcher) record(ctx context.Context, p booking.Payload, out Outcome, source string, at time.Time) {
	if d.rec == nil {
		return
	}
	s := store.Submission{
		ID:           out.ID,
		SubmittedAt:  at.UTC(),
		Source:       source,
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		Address:      p.Address,
		Services:     strings.Join(p.Services, ", "),
		AdminSent:    out.AdminErr == nil,
		CustomerSent: out.CustomerErr == nil,
	}
	if err := out.Err(); err != nil {
		s.Error = truncate(err.Error(), 512)
	}
	// The emails are already out; a log failure must not change the answer.
	if err := d.rec.Record(context.WithoutCancel(ctx), s); err != nil {
		zap.S().Warnw("submission log write failed", "booking_id", out.ID, "error", err)
	}
}

func count(recipient string, err error) {
	outcome := metrics.OutcomeSent
	if err != nil {
		outcome = metrics.OutcomeFailed
	}
	metrics.NotificationsTotal.WithLabelValues(recipient, outcome).Inc()
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
