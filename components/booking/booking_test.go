package booking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bk "github.com/yanizio/tradesite/internal/booking"
	"github.com/yanizio/tradesite/internal/component"
	"github.com/yanizio/tradesite/internal/config"
	"github.com/yanizio/tradesite/internal/form"
	"github.com/yanizio/tradesite/internal/message"
	"github.com/yanizio/tradesite/internal/middleware"
	"github.com/yanizio/tradesite/internal/notify"
	"github.com/yanizio/tradesite/internal/places"
	"github.com/yanizio/tradesite/internal/view"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []message.Email
	failOn map[int]bool
}

func (f *fakeSender) Send(_ context.Context, e message.Email) (message.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	if f.failOn[len(f.sent)] {
		return message.Receipt{}, errors.New("provider down")
	}
	return message.Receipt{ID: "m", Provider: "fake", To: e.To}, nil
}

type fakeLookup struct{ details int }

func (f *fakeLookup) Autocomplete(context.Context, string) ([]places.Prediction, error) {
	return nil, nil
}

func (f *fakeLookup) Details(_ context.Context, id string) (bk.Address, error) {
	f.details++
	if id != "place-1" {
		return bk.Address{}, errors.New("not found")
	}
	return bk.Address{
		Formatted:  "1 Resolved St, Sydney NSW 2000",
		Components: map[string]string{bk.ComponentLocality: "Sydney"},
	}, nil
}

type fixture struct {
	router http.Handler
	sender *fakeSender
	lookup *fakeLookup
	tokens *form.Tokens
}

func setup(t *testing.T, limiter *middleware.Limiter, failOn map[int]bool) *fixture {
	t.Helper()
	require.NoError(t, form.LoadFS(os.DirFS("../../forms")))

	cfg := &config.Config{}
	cfg.Mail.Business = "Metro Plumbing"
	cfg.Mail.BusinessPhone = "1300 000 000"

	fx := &fixture{sender: &fakeSender{failOn: failOn}, lookup: &fakeLookup{}, tokens: form.NewTokens("")}
	v, err := view.New(view.Site{Business: cfg.Mail.Business}, nil)
	require.NoError(t, err)

	c := &Component{}
	require.NoError(t, c.Init(component.Deps{
		Config:     cfg,
		Dispatcher: notify.New(fx.sender, notify.Config{AdminTo: []string{"office@example.com"}, Business: cfg.Mail.Business}, nil),
		Places:     places.NewReadyHandle(fx.lookup),
		Tokens:     fx.tokens,
		Limiter:    limiter,
		View:       v,
	}))
	r := chi.NewRouter()
	r.Mount("/", c.Routes())
	fx.router = r
	return fx
}

// valid returns a posted form that passes every check.
func (fx *fixture) valid(t *testing.T) url.Values {
	t.Helper()
	tok, err := fx.tokens.Generate()
	require.NoError(t, err)
	return url.Values{
		"csrf_token":    {tok},
		"render_ts":     {form.Stamp(time.Now().Add(-30 * time.Second))},
		"name":          {"Jane Doe"},
		"email":         {"jane@example.com"},
		"phone":         {"0412 345 678"},
		"address":       {"1 Typed St"},
		"services":      {"Gas Fitting", "Leak Detection"},
		"urgency":       {"24h"},
		"termsAccepted": {"on"},
	}
}

func (fx *fixture) post(path string, v url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func TestFormGET(t *testing.T) {
	fx := setup(t, nil, nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathForm, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="csrf_token"`)
	assert.Contains(t, body, `data-autocomplete="places"`)
	assert.Contains(t, body, `data-places="ready"`)
	assert.Contains(t, body, "<title>Book a tradesperson | Metro Plumbing</title>")
}

func TestFormPOSTDispatches(t *testing.T) {
	fx := setup(t, nil, nil)
	v := fx.valid(t)
	v.Set(form.PlaceIDField, "place-1")

	rec := fx.post(PathForm, v)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, PathThanks, rec.Header().Get("Location"))

	require.Len(t, fx.sender.sent, 2)
	assert.Equal(t, []string{"office@example.com"}, fx.sender.sent[0].To)
	assert.Equal(t, []string{"jane@example.com"}, fx.sender.sent[1].To)
	assert.Contains(t, fx.sender.sent[0].HTML, "1 Resolved St, Sydney NSW 2000")
	assert.Contains(t, fx.sender.sent[0].HTML, "Gas Fitting, Leak Detection")
}

func TestFormPOSTManualSkipsLookup(t *testing.T) {
	fx := setup(t, nil, nil)
	v := fx.valid(t)
	v.Set(form.PlaceIDField, "place-1")
	v.Set(form.ManualField, "on")

	rec := fx.post(PathForm, v)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, fx.lookup.details)
	assert.Contains(t, fx.sender.sent[0].HTML, "1 Typed St")
}

func TestFormPOSTLookupFailureKeepsText(t *testing.T) {
	fx := setup(t, nil, nil)
	v := fx.valid(t)
	v.Set(form.PlaceIDField, "unknown")

	rec := fx.post(PathForm, v)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, fx.sender.sent[0].HTML, "1 Typed St")
}

func TestFormPOSTInvalidPhone(t *testing.T) {
	fx := setup(t, nil, nil)
	v := fx.valid(t)
	v.Set("phone", "12345")

	rec := fx.post(PathForm, v)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a valid Australian phone number.")
	assert.Contains(t, rec.Body.String(), `value="Jane Doe"`)
	assert.Empty(t, fx.sender.sent)
}

func TestFormPOSTMissingTerms(t *testing.T) {
	fx := setup(t, nil, nil)
	v := fx.valid(t)
	v.Del("termsAccepted")

	rec := fx.post(PathForm, v)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please accept the terms and conditions.")
	assert.Empty(t, fx.sender.sent)
}

func TestFormPOSTStaffFailure(t *testing.T) {
	fx := setup(t, nil, map[int]bool{1: true})
	rec := fx.post(PathForm, fx.valid(t))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to send booking email.")
	assert.Len(t, fx.sender.sent, 2, "customer email is still attempted")
}

func TestFormPOSTCustomerFailure(t *testing.T) {
	fx := setup(t, nil, map[int]bool{2: true})
	rec := fx.post(PathForm, fx.valid(t))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathThanks+"?confirm=0", rec.Header().Get("Location"))
}

func TestThanks(t *testing.T) {
	fx := setup(t, nil, nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathThanks+"?confirm=0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not send your confirmation email")
	assert.Contains(t, rec.Body.String(), "1300 000 000")
}

func TestAPIRoute(t *testing.T) {
	fx := setup(t, nil, nil)
	body := `{"name":"Jane","email":"jane@example.com","phone":"0412345678","address":"1 Test St","termsAccepted":true}`
	req := httptest.NewRequest(http.MethodPost, PathAPI, strings.NewReader(body))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, fx.sender.sent[0].HTML, bk.NotSpecified)
}

func TestRateLimited(t *testing.T) {
	fx := setup(t, middleware.NewLimiter(0.001, 1), nil)
	require.Equal(t, http.StatusSeeOther, fx.post(PathForm, fx.valid(t)).Code)
	assert.Equal(t, http.StatusTooManyRequests, fx.post(PathForm, fx.valid(t)).Code)
}

func TestFormServicesMatchValidator(t *testing.T) {
	require.NoError(t, form.LoadFS(os.DirFS("../../forms")))
	fd, ok := form.Get(FormID)
	require.True(t, ok)

	var opts []string
	for _, f := range fd.AllFields() {
		if f.Name == bk.FieldServices {
			opts = f.Options
		}
	}
	assert.Equal(t, bk.ServiceOptions, opts)
}
