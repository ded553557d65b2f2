// internal/submit/transport.go
//
// HTTP transport to POST /api/send-booking-email.

package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/tradesite/internal/booking"
)

// DispatchPath is the dispatcher route.
const DispatchPath = "/api/send-booking-email"

// HTTPTransport posts the validated payload as JSON.  Any non-2xx answer is
// a failure.
type HTTPTransport struct {
	url    string
	client *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport targets baseURL + DispatchPath.  A zero timeout means
// 15 seconds; the in-flight gate can never stick longer than that.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPTransport{
		url:    strings.TrimRight(baseURL, "/") + DispatchPath,
		client: &http.Client{Timeout: timeout},
	}
}

// WithClient swaps the HTTP client, e.g. for httptest servers.
func (t *HTTPTransport) WithClient(c *http.Client) *HTTPTransport {
	t.client = c
	return t
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, v *booking.Validated) (Result, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// Correlates client and server logs.  The dispatcher does not dedupe on it.
	req.Header.Set("X-Request-Id", uuid.NewString())

	res, err := t.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Result{}, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = http.StatusText(res.StatusCode)
		}
		return Result{}, fmt.Errorf("dispatch HTTP %d: %s", res.StatusCode, e.Error)
	}

	var out Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("decode dispatch response: %w", err)
	}
	return out, nil
}
