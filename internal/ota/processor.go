package ota

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/rate"
)

type storage interface {
	UpsertInventory(ctx context.Context, days []inventory.Day) (inventory.BulkResult, error)
	UpsertRates(ctx context.Context, days []rate.Day) (rate.WriteResult, error)
}

type Processor struct {
	l       *logger.Logger
	storage storage
	now     func() time.Time
}

type Option func(*Processor)

// WithClock overrides the clock used for the past-date floor and response timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

func NewProcessor(l *logger.Logger, storage storage, opts ...Option) *Processor {
	p := &Processor{
		l:       l.With("ota"),
		storage: storage,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// SyncResult summarises one processed document.
type SyncResult struct {
	Root      string
	EchoToken string
	Applied   int
	Fault     *Fault
}

func (r SyncResult) Success() bool {
	return r.Fault == nil
}

// Reply is the rendered response of one inbound document.
type Reply struct {
	Status int
	Body   []byte
	Result SyncResult
}

// Process runs one document through parse, validation, persistence and rendering.
// It always produces a well-formed XML reply, including when a stage panics.
func (p *Processor) Process(ctx context.Context, body []byte) (reply Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			root, token := RecoverEnvelope(body)
			p.l.LogErrorf("Recovered while processing %s (EchoToken %s): %v", root, token, rec)
			reply = p.render(root, token, 0, newFault(ProcessingError, "unexpected failure while processing document"))
		}
	}()

	root, token := sniff(body)
	if root == "" {
		root, token = RecoverEnvelope(body)

		return p.render(root, token, 0, newFault(StructuralError, "request body is not an XML document"))
	}

	ctx = NewContextWithEchoToken(ctx, token)

	var (
		applied int
		fault   *Fault
	)

	switch root {
	case RootInvCountNotif:
		applied, fault = p.processInvCount(ctx, body)
	case RootRateAmountNotif:
		applied, fault = p.processRateAmount(ctx, body)
	default:
		fault = newFault(StructuralError, "unsupported message %s", root)
	}

	return p.render(root, token, applied, fault)
}

// Reject answers a document that never reached the pipeline, such as an unreadable body.
func (p *Processor) Reject(body []byte, t FaultType, format string, v ...any) Reply {
	root, token := RecoverEnvelope(body)

	return p.render(root, token, 0, newFault(t, format, v...))
}

func (p *Processor) render(root, token string, applied int, fault *Fault) Reply {
	if token == "" {
		token = UnknownEchoToken
	}

	result := SyncResult{Root: root, EchoToken: token, Applied: applied, Fault: fault}
	status := http.StatusOK
	res := successResponse(root, token, p.now())

	if fault != nil {
		status = fault.HTTPStatus
		res = faultResponse(root, token, fault, p.now())
		p.l.LogWarnf("%s (EchoToken %s) rejected: %s", root, token, fault.Error())
	}

	body, err := res.Marshal()
	if err != nil {
		p.l.LogErrorf("Failed to render %s response: %v", ResponseName(root), err)

		return Reply{
			Status: http.StatusInternalServerError,
			Body: []byte(fmt.Sprintf(
				`%s<%s xmlns="%s" EchoToken="UNKNOWN" Version="%s"><Errors><Error Type="%s" Code="%s">response rendering failed</Error></Errors></%s>`,
				xml.Header, ResponseName(fallbackRoot), Namespace, Version,
				ProcessingError, faultCodes[ProcessingError], ResponseName(fallbackRoot),
			)),
			Result: result,
		}
	}

	return Reply{Status: status, Body: body, Result: result}
}

func decode(body []byte, v any) *Fault {
	if err := xml.Unmarshal(body, v); err != nil {
		return newFault(StructuralError, "malformed XML: %s", err.Error())
	}

	return nil
}

func (p *Processor) processInvCount(ctx context.Context, body []byte) (int, *Fault) {
	var rq InvCountNotifRQ

	if fault := decode(body, &rq); fault != nil {
		return 0, fault
	}

	entries, fault := validateInvCount(&rq, calendar.Today(p.now()))
	if fault != nil {
		return 0, fault
	}

	days := availabilityDays(rq.Inventories.HotelCode, rq.Inventories.HotelName, entries)

	res, err := p.storage.UpsertInventory(ctx, days)
	if err != nil {
		token, _ := EchoTokenFromContext(ctx)
		p.l.LogErrorf("Inventory upsert for %s (EchoToken %s) failed: %v", rq.Inventories.HotelCode, token, err)

		return int(res.Upserted + res.Matched), newFault(
			ProcessingError, "failed to store inventory: %d of %d day(s) applied", res.Upserted+res.Matched, len(days),
		)
	}

	p.l.LogInfo("Applied %d inventory day(s) for %s: %d inserted, %d updated",
		len(days), rq.Inventories.HotelCode, res.Upserted, res.Matched)

	return len(days), nil
}

// availabilityDays expands every entry into calendar days. A later entry wins a day
// claimed by an earlier one, the same outcome sequential upserts would give.
func availabilityDays(hotelCode, hotelName string, entries []AvailabilityEntry) []inventory.Day {
	type key struct {
		invTypeCode string
		date        time.Time
	}

	index := make(map[key]int)

	var days []inventory.Day

	for _, entry := range entries {
		for _, date := range calendar.Span(entry.Start, entry.End) {
			day := inventory.NewDay(hotelCode, entry.InvTypeCode, date, entry.Count)
			day.HotelName = hotelName

			k := key{invTypeCode: entry.InvTypeCode, date: day.Availability.StartDate}
			if idx, ok := index[k]; ok {
				days[idx] = day

				continue
			}

			index[k] = len(days)
			days = append(days, day)
		}
	}

	return days
}

func (p *Processor) processRateAmount(ctx context.Context, body []byte) (int, *Fault) {
	var rq RateAmountNotifRQ

	if fault := decode(body, &rq); fault != nil {
		return 0, fault
	}

	entries, fault := validateRateAmount(&rq, calendar.Today(p.now()))
	if fault != nil {
		return 0, fault
	}

	days, fault := rateDays(rq.RateAmountMessages.HotelCode, rq.RateAmountMessages.HotelName, entries)
	if fault != nil {
		return 0, fault
	}

	res, err := p.storage.UpsertRates(ctx, days)
	if err != nil {
		token, _ := EchoTokenFromContext(ctx)
		p.l.LogErrorf("Rate upsert for %s (EchoToken %s) failed: %v", rq.RateAmountMessages.HotelCode, token, err)

		return int(res.Upserted + res.Matched), newFault(
			ProcessingError, "failed to store rates: %d of %d day(s) applied", res.Upserted+res.Matched, len(days),
		)
	}

	p.l.LogInfo("Applied %d rate day(s) for %s: %d inserted, %d updated",
		len(days), rq.RateAmountMessages.HotelCode, res.Upserted, res.Matched)

	return len(days), nil
}

func rateDays(hotelCode, hotelName string, entries []RateEntry) ([]rate.Day, *Fault) {
	type key struct {
		invTypeCode  string
		ratePlanCode string
		date         time.Time
	}

	index := make(map[key]int)

	var days []rate.Day

	for _, entry := range entries {
		//nolint:exhaustruct
		expanded, err := rate.ExpandPlan(&rate.Plan{
			HotelCode:              hotelCode,
			HotelName:              hotelName,
			InvTypeCode:            entry.InvTypeCode,
			RatePlanCode:           entry.RatePlanCode,
			Start:                  entry.Start,
			End:                    entry.End,
			Days:                   entry.Days,
			CurrencyCode:           entry.CurrencyCode,
			BaseByGuestAmts:        entry.BaseByGuestAmts,
			AdditionalGuestAmounts: entry.AdditionalGuestAmounts,
		})
		if err != nil {
			return nil, newFault(DateError, "%s/%s: %s", entry.InvTypeCode, entry.RatePlanCode, err.Error())
		}

		if len(expanded) == 0 {
			return nil, newFault(BusinessError,
				"%s/%s: day flags select no day between %s and %s",
				entry.InvTypeCode, entry.RatePlanCode, calendar.Format(entry.Start), calendar.Format(entry.End),
			)
		}

		for _, day := range expanded {
			k := key{invTypeCode: day.InvTypeCode, ratePlanCode: day.RatePlanCode, date: day.StartDate}
			if idx, ok := index[k]; ok {
				days[idx] = day

				continue
			}

			index[k] = len(days)
			days = append(days, day)
		}
	}

	return days, nil
}
