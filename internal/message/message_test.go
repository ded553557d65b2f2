package message

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"net/mail"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func sample() Email {
	return Email{
		To:      []string{"jane@example.com"},
		Subject: "Booking received – thanks",
		Text:    "Hi Jane",
		HTML:    "<p>Hi Jane</p>",
	}
}

func TestMIME(t *testing.T) {
	e := sample()
	e.From = "Bookings <bookings@example.com.au>"
	raw, err := e.MIME()
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	to, err := msg.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "jane@example.com", to[0].Address)

	from, err := msg.Header.AddressList("From")
	require.NoError(t, err)
	assert.Equal(t, &mail.Address{Name: "Bookings", Address: "bookings@example.com.au"}, from[0])

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Booking received – thanks", subject)
	assert.NotEmpty(t, msg.Header.Get("Message-ID"))

	ctype, _, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", ctype)

	body, err := io.ReadAll(msg.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "text/plain")
	assert.Contains(t, string(body), "text/html")
	assert.Contains(t, string(body), "<p>Hi Jane</p>")
}

func TestMIMEHTMLOnly(t *testing.T) {
	e := sample()
	e.Text = ""
	raw, err := e.MIME()
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	ctype, _, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "text/html", ctype)
}

func TestValidateRejectsHeaderInjection(t *testing.T) {
	e := sample()
	e.Subject = "hi\r\nBcc: all@example.com"
	assert.Error(t, e.Validate())

	e = sample()
	e.To = nil
	assert.ErrorIs(t, e.Validate(), ErrNoRecipient)
}

func TestLogSender(t *testing.T) {
	r, err := LogSender{}.Send(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, "log", r.Provider)
	assert.NotEmpty(t, r.ID)
}

func TestGmailSender(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/users/me/messages/send") {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		dec, err := base64.URLEncoding.DecodeString(body.Raw)
		require.NoError(t, err)
		got = string(dec)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"m-1","threadId":"t-1"}`))
	}))
	defer srv.Close()

	g, err := NewGmailSender(context.Background(),
		GmailConfig{From: "bookings@example.com.au"},
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	r, err := g.Send(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, Receipt{ID: "m-1", ThreadID: "t-1", Provider: "gmail", To: []string{"jane@example.com"}}, r)
	msg, err := mail.ReadMessage(strings.NewReader(got))
	require.NoError(t, err)
	from, err := msg.Header.AddressList("From")
	require.NoError(t, err)
	assert.Equal(t, "bookings@example.com.au", from[0].Address)
}

func TestGmailSenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"backend"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewGmailSender(context.Background(), GmailConfig{},
		option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	_, err = g.Send(context.Background(), sample())
	assert.Error(t, err)
}
