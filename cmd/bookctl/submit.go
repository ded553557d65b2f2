package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/tradesite/internal/booking"
	"github.com/yanizio/tradesite/internal/places"
	"github.com/yanizio/tradesite/internal/submit"
)

type submitOpts struct {
	name, email, phone string
	address            string
	manual             bool
	pick               int
	services           []string
	date, window       string
	urgency, message   string
	newsletter, terms  bool
}

func newSubmitCmd(g *globalOpts) *cobra.Command {
	o := &submitOpts{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send a booking exactly as the web form would",
		Long: `Fill a booking draft from flags, validate it, and post it to
/api/send-booking-email.

Unless --manual is given, --address is sent to the site's address lookup
and suggestion --pick (0-based) is resolved into a structured address.
When the lookup is unavailable the typed text is kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubmit(cmd, g, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.name, "name", "", "customer name")
	f.StringVar(&o.email, "email", "", "customer email")
	f.StringVar(&o.phone, "phone", "", "customer phone")
	f.StringVar(&o.address, "address", "", "service address")
	f.BoolVar(&o.manual, "manual", false, "skip the address lookup")
	f.IntVar(&o.pick, "pick", 0, "suggestion to use, -1 keeps the typed text")
	f.StringSliceVar(&o.services, "service", nil, "requested service (repeatable)")
	f.StringVar(&o.date, "date", "", "preferred date, YYYY-MM-DD")
	f.StringVar(&o.window, "time", "", "preferred time window")
	f.StringVar(&o.urgency, "urgency", "", "urgency")
	f.StringVar(&o.message, "message", "", "job description")
	f.BoolVar(&o.newsletter, "newsletter", false, "subscribe to the newsletter")
	f.BoolVar(&o.terms, "accept-terms", false, "accept the terms and conditions")
	return cmd
}

func runSubmit(cmd *cobra.Command, g *globalOpts, o *submitOpts) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*g.timeout)
	defer cancel()

	store := booking.NewStore()
	fields := []struct {
		name  string
		value any
	}{
		{booking.FieldName, o.name},
		{booking.FieldEmail, o.email},
		{booking.FieldPhone, o.phone},
		{booking.FieldPreferredDate, o.date},
		{booking.FieldPreferredTime, o.window},
		{booking.FieldUrgency, o.urgency},
		{booking.FieldMessage, o.message},
		{booking.FieldNewsletter, o.newsletter},
		{booking.FieldTerms, o.terms},
	}
	for _, f := range fields {
		if err := store.SetField(f.name, f.value); err != nil {
			return err
		}
	}
	for _, s := range o.services {
		store.ToggleService(s)
	}

	if err := fillAddress(ctx, cmd.ErrOrStderr(), g, o, store); err != nil {
		return err
	}

	val := booking.NewValidator()
	tr := submit.NewHTTPTransport(g.site, g.timeout)
	res, err := submit.New(store, val, tr).Submit(ctx)
	switch {
	case errors.Is(err, submit.ErrInvalid):
		printErrors(cmd, val.Visible())
		return err
	case err != nil:
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// fillAddress runs the address field through the lookup adapter.
func fillAddress(ctx context.Context, w io.Writer, g *globalOpts, o *submitOpts, store *booking.Store) error {
	hc := &http.Client{Timeout: g.timeout}
	h := places.NewHandle(places.RemoteLoader(g.site, hc), places.WithRetry(3, 200*time.Millisecond))
	a := places.NewAdapter(h, store.SetAddress)
	a.SetManual(o.manual)

	if !o.manual && o.address != "" {
		if err := h.Init(ctx); err != nil {
			zap.S().Warnw("address lookup unavailable, keeping typed text", "err", err)
		}
	}

	preds, err := a.Input(ctx, o.address)
	if err != nil {
		zap.S().Warnw("address suggestions failed, keeping typed text", "err", err)
		return nil
	}
	if o.pick < 0 || o.pick >= len(preds) {
		return nil
	}
	addr, err := a.Select(ctx, preds[o.pick].PlaceID)
	if err != nil {
		zap.S().Warnw("address details failed, keeping typed text", "err", err)
		return nil
	}
	fmt.Fprintf(w, "address: %s\n", addr.Formatted)
	return nil
}

func printErrors(cmd *cobra.Command, errs map[string]string) {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", k, errs[k])
	}
}
