// internal/notify/handler.go
//
// POST /api/send-booking-email.
//
//	200  {"success":true,  "adminEmail":{…}, "customerEmail":{…}}
//	400  {"success":false, "error":"…"}                       malformed JSON
//	413  {"success":false, "error":"…"}                       body over MaxBody
//	422  {"success":false, "error":"…", "fields":{…}}         failed validation
//	500  {"success":false, "error":"…", "adminEmail":{…}?,
//	      "customerEmail":{…}?, "delivered":{"admin":b,"customer":b}}

package notify

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/tradesite/internal/booking"
	"github.com/yanizio/tradesite/internal/message"
	"github.com/yanizio/tradesite/internal/metrics"
	"github.com/yanizio/tradesite/internal/requestinfo"
)

// MaxBody caps the request body.  Attachments never travel on this route.
const MaxBody = 64 << 10

// Delivered reports per-recipient success on failure responses.
type Delivered struct {
	Admin    bool `json:"admin"`
	Customer bool `json:"customer"`
}

// Response is the endpoint's JSON body for every status.
type Response struct {
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
	AdminEmail    *message.Receipt  `json:"adminEmail,omitempty"`
	CustomerEmail *message.Receipt  `json:"customerEmail,omitempty"`
	Delivered     *Delivered        `json:"delivered,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// Result converts an Outcome into the response body.
func (o Outcome) Result() (int, Response) {
	res := Response{
		Success:       o.OK(),
		AdminEmail:    o.Admin,
		CustomerEmail: o.Customer,
	}
	if o.OK() {
		return http.StatusOK, res
	}
	res.Delivered = &Delivered{Admin: o.AdminErr == nil, Customer: o.CustomerErr == nil}
	switch {
	case res.Delivered.Admin:
		res.Error = "Your request reached our team but the confirmation email could not be sent."
	default:
		res.Error = "Failed to send booking email.  Please try again or call us."
	}
	return http.StatusInternalServerError, res
}

// Handler serves the dispatch endpoint.
func (d *Dispatcher) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p booking.Payload
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBody))
		if err := dec.Decode(&p); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				metrics.BookingsRejected.WithLabelValues("too_large").Inc()
				writeJSON(w, http.StatusRequestEntityTooLarge, Response{Error: "Request body too large."})
				return
			}
			metrics.BookingsRejected.WithLabelValues("bad_json").Inc()
			writeJSON(w, http.StatusBadRequest, Response{Error: "Malformed request body."})
			return
		}

		v, err := booking.Check(p)
		if err != nil {
			var ve *booking.ValidationError
			if errors.As(err, &ve) {
				metrics.BookingsRejected.WithLabelValues("invalid").Inc()
				writeJSON(w, http.StatusUnprocessableEntity, Response{
					Error:  "Please check the highlighted fields.",
					Fields: ve.Fields,
				})
				return
			}
			writeJSON(w, http.StatusInternalServerError, Response{Error: "Failed to send booking email."})
			return
		}
		metrics.BookingsReceived.WithLabelValues(metrics.SourceAPI).Inc()

		out := d.Dispatch(r.Context(), v, LeadFrom(r), metrics.SourceAPI)
		code, body := out.Result()
		writeJSON(w, code, body)
	}
}

// LeadFrom extracts request details attached by requestinfo.Enrich.
func LeadFrom(r *http.Request) *Lead {
	ri := requestinfo.FromContext(r.Context())
	if ri == nil {
		return nil
	}
	l := &Lead{
		Browser: ri.Device.Browser,
		OS:      ri.Device.OS,
		Device:  ri.Device.Class,
		Country: ri.Origin.Country,
		City:    ri.Origin.City,
		Source:  ri.Source.String(),
	}
	if ri.Origin.IP != nil {
		l.IP = ri.Origin.IP.String()
	}
	return l
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Debugw("notify: write response", "error", err)
	}
}
