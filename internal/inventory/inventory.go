package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/logger"
)

type storage interface {
	BulkSetInventoryStatus(ctx context.Context, changes []StatusChange) (BulkResult, error)
	SetInventoryStatus(ctx context.Context, change StatusChange) (BulkResult, error)
}

type Manager struct {
	l       *logger.Logger
	storage storage
	now     func() time.Time
}

type Option func(*Manager)

// WithClock overrides the clock used for the past-date floor.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func New(l *logger.Logger, storage storage, opts ...Option) *Manager {
	m := &Manager{
		l:       l.With("inventory"),
		storage: storage,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

type plan struct {
	hotelCode string
	roomTypes []string
	dates     []time.Time
	statuses  map[time.Time]Status
}

func (p *plan) changes() []StatusChange {
	changes := make([]StatusChange, 0, len(p.roomTypes)*len(p.dates))

	for _, roomType := range p.roomTypes {
		for _, date := range p.dates {
			changes = append(changes, StatusChange{
				HotelCode:   p.hotelCode,
				InvTypeCode: roomType,
				Date:        date,
				Status:      p.statuses[date],
			})
		}
	}

	return changes
}

func (m *Manager) prepare(input *UpdateStatusInput) (*plan, error) {
	inputErr := newInputError()
	today := calendar.Today(m.now())

	hotelCode := strings.TrimSpace(input.HotelCode)
	if hotelCode == "" {
		inputErr.addError("hotelCode", "provide hotelCode")
	}

	if len(input.InvTypeCodes) == 0 {
		inputErr.addError("invTypeCodes", "provide at least one invTypeCode")
	}

	seen := make(map[string]struct{}, len(input.InvTypeCodes))
	roomTypes := make([]string, 0, len(input.InvTypeCodes))

	for idx, code := range input.InvTypeCodes {
		code = strings.TrimSpace(code)
		if code == "" {
			inputErr.addError("invTypeCodes", fmt.Sprintf("invTypeCodes[%d] must be a non-empty string", idx))

			continue
		}

		if _, ok := seen[code]; ok {
			continue
		}

		seen[code] = struct{}{}
		roomTypes = append(roomTypes, code)
	}

	if len(input.DateStatusList) == 0 {
		inputErr.addError("dateStatusList", "provide at least one date/status pair")
	}

	statuses := make(map[time.Time]Status, len(input.DateStatusList))

	for idx, item := range input.DateStatusList {
		status := Status(strings.ToLower(strings.TrimSpace(item.Status)))
		if !status.Valid() {
			inputErr.addError("dateStatusList", fmt.Sprintf("dateStatusList[%d].status must be open or close", idx))
		}

		date, err := calendar.Parse(item.Date)
		if err != nil {
			inputErr.addError("dateStatusList", fmt.Sprintf("dateStatusList[%d].date is not a valid date", idx))

			continue
		}

		if date.Before(today) {
			inputErr.addError("dateStatusList", fmt.Sprintf("dateStatusList[%d].date must not be in the past", idx))

			continue
		}

		// the last status supplied for a day wins
		statuses[date] = status
	}

	if inputErr.fieldsCount() > 0 {
		return nil, inputErr
	}

	dates := make([]time.Time, 0, len(statuses))
	for date := range statuses {
		dates = append(dates, date)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return &plan{
		hotelCode: hotelCode,
		roomTypes: roomTypes,
		dates:     dates,
		statuses:  statuses,
	}, nil
}

func newResult(p *plan, ops int) *UpdateResult {
	//nolint:exhaustruct
	return &UpdateResult{
		RoomTypesProcessed: len(p.roomTypes),
		DatesProcessed:     len(p.dates),
		TotalOperations:    ops,
		Details:            make([]Detail, 0, ops),
	}
}

func detailFor(change StatusChange) Detail {
	//nolint:exhaustruct
	return Detail{
		InvTypeCode: change.InvTypeCode,
		Date:        calendar.Format(change.Date),
		Status:      change.Status,
	}
}

// UpdateStatus opens or closes every (room type, day) cell in one unordered bulk request.
// Cells without a stored day are left unmatched; nothing is created.
func (m *Manager) UpdateStatus(ctx context.Context, input *UpdateStatusInput) (*UpdateResult, error) {
	p, err := m.prepare(input)
	if err != nil {
		return nil, err
	}

	changes := p.changes()

	res, err := m.storage.BulkSetInventoryStatus(ctx, changes)
	if err != nil {
		return nil, fmt.Errorf("hotel %s, %d operations: %w: %w", p.hotelCode, len(changes), ErrBulkUpdate, err)
	}

	result := newResult(p, len(changes))
	result.MatchedCount = res.Matched
	result.ModifiedCount = res.Modified

	for _, change := range changes {
		detail := detailFor(change)
		detail.Outcome = OutcomeSubmitted
		result.Details = append(result.Details, detail)
	}

	m.l.LogInfo(
		"Status update for hotel %s: %d operations, matched %d, modified %d",
		p.hotelCode, len(changes), res.Matched, res.Modified,
	)

	return result, nil
}

// UpdateStatusDetailed applies the same changes one by one and reports the outcome of every cell.
// A failing cell does not stop its siblings.
func (m *Manager) UpdateStatusDetailed(ctx context.Context, input *UpdateStatusInput) (*UpdateResult, error) {
	p, err := m.prepare(input)
	if err != nil {
		return nil, err
	}

	changes := p.changes()
	result := newResult(p, len(changes))

	for _, change := range changes {
		detail := detailFor(change)

		res, err := m.storage.SetInventoryStatus(ctx, change)

		switch {
		case err != nil:
			detail.Outcome = OutcomeError
			detail.Error = err.Error()

			m.l.LogErrorf("Status update for %s/%s on %s failed: %v", p.hotelCode, change.InvTypeCode, detail.Date, err)
		case res.Matched == 0:
			detail.Outcome = OutcomeSkipped
			detail.Reason = ReasonNotFound
		case res.Modified == 0:
			detail.Outcome = OutcomeSkipped
			detail.Reason = ReasonNoChange
		default:
			detail.Outcome = OutcomeUpdated
		}

		result.MatchedCount += res.Matched
		result.ModifiedCount += res.Modified
		result.Details = append(result.Details, detail)
	}

	return result, nil
}
