// components/booking/booking.go
//
// Booking component: the HTML booking page and the JSON dispatch endpoint.
//
// Context
// -------
// Two ways in, one way out.  Browsers without JavaScript post the HTML form
// to /booking; the enhanced page and bookctl post JSON to
// /api/send-booking-email.  Both end in notify.Dispatcher, so staff and the
// customer get the same two emails either way.
//
// HTML flow
// ---------
//  1. form.Tokens checks CSRF, fill time, and per-field shape.
//  2. Clean values are applied to a booking.Store, one field at a time, the
//     same way the browser mutates its draft.
//  3. A posted `_place_id` is resolved through a places.Adapter so the
//     staff email carries structured address parts.  Lookup failure keeps
//     the typed text.
//  4. booking.Validator runs in eager mode and produces a Validated value.
//  5. The dispatcher sends both emails.  When the staff email went out the
//     customer is redirected to /booking/thanks, otherwise the form is
//     shown again with their answers.
//
//------------------------------------------------------------------------------

package booking

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	bk "github.com/yanizio/tradesite/internal/booking"
	"github.com/yanizio/tradesite/internal/component"
	"github.com/yanizio/tradesite/internal/form"
	"github.com/yanizio/tradesite/internal/head"
	"github.com/yanizio/tradesite/internal/metrics"
	"github.com/yanizio/tradesite/internal/middleware"
	"github.com/yanizio/tradesite/internal/notify"
	"github.com/yanizio/tradesite/internal/places"
	"github.com/yanizio/tradesite/internal/view"
)

// FormID names the form definition in forms/booking.yaml.
const FormID = "booking"

// Routes served by this component.
const (
	PathForm   = "/booking"
	PathThanks = "/booking/thanks"
	PathAPI    = "/api/send-booking-email"
)

// detailsTimeout bounds the place lookup made while handling a POST.
const detailsTimeout = 3 * time.Second

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the booking flow.
type Component struct {
	deps component.Deps
	fd   *form.FormDef
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "booking" }

// Migrations returns the submission log schema.
func (c *Component) Migrations() []string { return []string{submissionSchema} }

// Init captures shared resources and the booking form definition.
func (c *Component) Init(d component.Deps) error {
	if d.Dispatcher == nil || d.Tokens == nil || d.View == nil {
		return errors.New("booking: dispatcher, tokens, and view are required")
	}
	fd, ok := form.Get(FormID)
	if !ok {
		return errors.New("booking: form definition " + FormID + " not loaded")
	}
	c.deps, c.fd = d, fd
	return nil
}

// Routes builds and returns the router mounted at “/”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	limit := middleware.RateLimit(c.deps.Limiter)

	r.Get(PathForm, c.handleFormGET)
	r.With(limit).Post(PathForm, c.handleFormPOST)
	r.Get(PathThanks, c.handleThanks)
	r.With(limit).Post(PathAPI, c.deps.Dispatcher.Handler())
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleFormGET(w http.ResponseWriter, r *http.Request) {
	c.renderForm(w, http.StatusOK, form.RenderOptions{})
}

func (c *Component) handleFormPOST(w http.ResponseWriter, r *http.Request) {
	clean, posted, err := c.deps.Tokens.HandleSubmit(c.fd, w, r)
	if err != nil {
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			metrics.BookingsRejected.WithLabelValues("invalid").Inc()
			c.renderForm(w, http.StatusUnprocessableEntity, form.RenderOptions{Values: posted, Errors: ve.Map()})
			return
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	store, err := c.draftFrom(r.Context(), clean, posted)
	if err != nil {
		zap.S().Errorw("booking: map form to draft", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	val := bk.NewValidator()
	val.MarkSubmitAttempted()
	v, ok := val.ValidateForm(store.Draft())
	if !ok {
		metrics.BookingsRejected.WithLabelValues("invalid").Inc()
		c.renderForm(w, http.StatusUnprocessableEntity, form.RenderOptions{Values: posted, Errors: val.Visible()})
		return
	}
	metrics.BookingsReceived.WithLabelValues(metrics.SourceForm).Inc()

	out := c.deps.Dispatcher.Dispatch(r.Context(), v, notify.LeadFrom(r), metrics.SourceForm)
	switch {
	case out.OK():
		http.Redirect(w, r, PathThanks, http.StatusSeeOther)
	case out.AdminErr == nil:
		http.Redirect(w, r, PathThanks+"?confirm=0", http.StatusSeeOther)
	default:
		_, body := out.Result()
		c.renderForm(w, http.StatusInternalServerError, form.RenderOptions{
			Values: posted,
			Errors: map[string]string{form.FormLevel: body.Error},
		})
	}
}

func (c *Component) handleThanks(w http.ResponseWriter, r *http.Request) {
	h := head.New()
	h.SetTitle("Thanks | " + c.deps.Config.Mail.Business)
	h.Meta(`<meta name="robots" content="noindex">`)

	body, err := render("thanks.html", map[string]any{
		"Business":  c.deps.Config.Mail.Business,
		"Phone":     c.deps.Config.Mail.BusinessPhone,
		"NoConfirm": r.URL.Query().Get("confirm") == "0",
	})
	if err != nil {
		zap.S().Errorw("booking: render thanks", "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	c.deps.View.Render(w, http.StatusOK, view.Page{Head: h, Body: body, Nav: c.deps.Nav()})
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

func (c *Component) renderForm(w http.ResponseWriter, code int, opts form.RenderOptions) {
	markup, err := c.deps.Tokens.Render(c.fd, opts)
	if err != nil {
		zap.S().Errorw("booking: render form", "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	body, err := render("form.html", map[string]any{
		"Title":  c.fd.Title,
		"Form":   markup,
		"Action": PathForm,
		"Places": c.deps.Places != nil && c.deps.Places.State() == places.Ready,
	})
	if err != nil {
		zap.S().Errorw("booking: render page", "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	h := head.New()
	h.SetTitle(c.fd.Title + " | " + c.deps.Config.Mail.Business)
	h.Description("Book " + c.deps.Config.Mail.Business + " online.  We confirm by email.")
	if base := c.deps.Config.HTTP.BaseURL; base != "" {
		h.Canonical(base + PathForm)
	}
	h.Script(`<script src="/assets/booking.js" defer></script>`)
	c.deps.View.Render(w, code, view.Page{Head: h, Body: body, Nav: c.deps.Nav()})
}

// draftFrom applies clean form values to a fresh Store.  The address is
// resolved through the place lookup when the browser sent a place id and
// manual entry is off.
func (c *Component) draftFrom(ctx context.Context, clean, posted url.Values) (*bk.Store, error) {
	s := bk.NewStore()
	for _, name := range []string{
		bk.FieldName, bk.FieldEmail, bk.FieldPhone, bk.FieldAddress,
		bk.FieldPreferredTime, bk.FieldPreferredDate, bk.FieldUrgency, bk.FieldMessage,
	} {
		if err := s.SetField(name, clean.Get(name)); err != nil {
			return nil, err
		}
	}
	for _, svc := range clean[bk.FieldServices] {
		s.ToggleService(svc)
	}
	for _, name := range []string{bk.FieldNewsletter, bk.FieldTerms} {
		if err := s.SetField(name, clean.Get(name) == "true"); err != nil {
			return nil, err
		}
	}

	placeID := posted.Get(form.PlaceIDField)
	if placeID == "" || c.deps.Places == nil {
		return s, nil
	}
	a := places.NewAdapter(c.deps.Places, s.SetAddress)
	a.SetManual(posted.Get(form.ManualField) == "on")
	if a.Degraded() {
		return s, nil
	}

	dctx, cancel := context.WithTimeout(ctx, detailsTimeout)
	defer cancel()
	if _, err := a.Select(dctx, placeID); err != nil {
		zap.S().Warnw("booking: place details failed, keeping typed address", "error", err)
	}
	return s, nil
}

// render executes one of this component's templates into a fragment.
func render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
