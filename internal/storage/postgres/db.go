// Package postgres keeps inventory and rate days in two PostgreSQL tables.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/rate"
)

type Config struct {
	L   *logger.Logger
	DSN string
}

type DB struct {
	l    *logger.Logger
	pool *pgxpool.Pool
}

func New(ctx context.Context, conf Config) (*DB, error) {
	pool, err := pgxpool.New(ctx, conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{l: conf.L.With("postgres"), pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	db.l.LogInfo("Schema ensured")

	return nil
}

type inventoryRow struct {
	HotelCode   string    `db:"hotel_code"`
	HotelName   string    `db:"hotel_name"`
	InvTypeCode string    `db:"inv_type_code"`
	StartDate   time.Time `db:"start_date"`
	EndDate     time.Time `db:"end_date"`
	Count       int       `db:"count"`
	Status      string    `db:"status"`
	DataSource  string    `db:"data_source"`
	Sold        *int      `db:"sold"`
	Blocked     *int      `db:"blocked"`
}

func (db *DB) FindInventory(ctx context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]inventory.Day, error) {
	rows, err := db.pool.Query(ctx, selectInventory, hotelCode, invTypeCode, calendar.Day(from), calendar.EndOfDay(to))
	if err != nil {
		return nil, fmt.Errorf("find inventory: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[inventoryRow])
	if err != nil {
		return nil, fmt.Errorf("scan inventory: %w", err)
	}

	days := make([]inventory.Day, 0, len(found))

	for _, r := range found {
		days = append(days, inventory.Day{
			HotelCode:   r.HotelCode,
			HotelName:   r.HotelName,
			InvTypeCode: r.InvTypeCode,
			Availability: inventory.Availability{
				StartDate: r.StartDate.UTC(),
				EndDate:   r.EndDate.UTC(),
				Count:     r.Count,
			},
			Status:     inventory.Status(r.Status),
			DataSource: r.DataSource,
			Sold:       r.Sold,
			Blocked:    r.Blocked,
		})
	}

	return days, nil
}

func statusArgs(change inventory.StatusChange) []any {
	return []any{string(change.Status), change.HotelCode, change.InvTypeCode, calendar.Day(change.Date), calendar.EndOfDay(change.Date)}
}

func (db *DB) sendStatusBatch(ctx context.Context, changes []inventory.StatusChange) (inventory.BulkResult, error) {
	batch := &pgx.Batch{}
	for _, change := range changes {
		batch.Queue(setStatus, statusArgs(change)...)
	}

	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()

	var total inventory.BulkResult

	for range changes {
		var matched, modified int64
		if err := br.QueryRow().Scan(&matched, &modified); err != nil {
			return inventory.BulkResult{}, err
		}

		total.Matched += matched
		total.Modified += modified
	}

	return total, nil
}

type setStatusFunc func(ctx context.Context, change inventory.StatusChange) (inventory.BulkResult, error)

// applyEach runs one statement per change so a failing cell leaves its siblings applied.
func applyEach(ctx context.Context, changes []inventory.StatusChange, set setStatusFunc) (inventory.BulkResult, error) {
	var (
		total inventory.BulkResult
		errs  []error
	)

	for _, change := range changes {
		res, err := set(ctx, change)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		total.Matched += res.Matched
		total.Modified += res.Modified
	}

	return total, errors.Join(errs...)
}

// BulkSetInventoryStatus pipelines every change in one batch. It never inserts.
// A batch runs in one implicit transaction, so when it fails the changes are
// retried one statement at a time to keep the update best-effort per cell.
func (db *DB) BulkSetInventoryStatus(ctx context.Context, changes []inventory.StatusChange) (inventory.BulkResult, error) {
	if len(changes) == 0 {
		return inventory.BulkResult{}, nil
	}

	total, err := db.sendStatusBatch(ctx, changes)
	if err == nil {
		return total, nil
	}

	if ctx.Err() != nil {
		return inventory.BulkResult{}, fmt.Errorf("bulk update inventory status: %w", err)
	}

	db.l.LogWarnf("Status batch of %d change(s) rolled back, applying one by one: %v", len(changes), err)

	total, err = applyEach(ctx, changes, db.SetInventoryStatus)
	if err != nil {
		return total, fmt.Errorf("bulk update inventory status: %w", err)
	}

	return total, nil
}

func (db *DB) SetInventoryStatus(ctx context.Context, change inventory.StatusChange) (inventory.BulkResult, error) {
	var matched, modified int64

	if err := db.pool.QueryRow(ctx, setStatus, statusArgs(change)...).Scan(&matched, &modified); err != nil {
		return inventory.BulkResult{}, fmt.Errorf("update inventory status: %w", err)
	}

	return inventory.BulkResult{Matched: matched, Modified: modified, Upserted: 0}, nil
}

func (db *DB) UpsertInventory(ctx context.Context, days []inventory.Day) (inventory.BulkResult, error) {
	if len(days) == 0 {
		return inventory.BulkResult{}, nil
	}

	batch := &pgx.Batch{}

	for _, day := range days {
		day.Normalize()
		batch.Queue(upsertInventory,
			day.HotelCode, day.HotelName, day.InvTypeCode,
			day.Availability.StartDate, day.Availability.EndDate, day.Availability.Count,
			string(day.Status), day.DataSource, day.Sold, day.Blocked,
		)
	}

	var total inventory.BulkResult

	err := db.sendUpserts(ctx, batch, len(days), func(inserted bool) {
		if inserted {
			total.Upserted++
		} else {
			total.Matched++
			total.Modified++
		}
	})
	if err != nil {
		return total, fmt.Errorf("upsert inventory: %w", err)
	}

	return total, nil
}

// sendUpserts runs a batch of INSERT .. RETURNING (xmax = 0) statements.
func (db *DB) sendUpserts(ctx context.Context, batch *pgx.Batch, n int, record func(inserted bool)) error {
	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range n {
		var inserted bool
		if err := br.QueryRow().Scan(&inserted); err != nil {
			return err //nolint:wrapcheck
		}

		record(inserted)
	}

	return nil
}

func (db *DB) DeleteInventory(ctx context.Context, hotelCode string) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM inventory_days WHERE hotel_code = $1`, hotelCode)
	if err != nil {
		return 0, fmt.Errorf("delete inventory of %s: %w", hotelCode, err)
	}

	return tag.RowsAffected(), nil
}

type rateRow struct {
	HotelCode              string    `db:"hotel_code"`
	HotelName              string    `db:"hotel_name"`
	InvTypeCode            string    `db:"inv_type_code"`
	RatePlanCode           string    `db:"rate_plan_code"`
	StartDate              time.Time `db:"start_date"`
	EndDate                time.Time `db:"end_date"`
	Days                   []byte    `db:"days"`
	CurrencyCode           string    `db:"currency_code"`
	BaseByGuestAmts        []byte    `db:"base_by_guest_amts"`
	AdditionalGuestAmounts []byte    `db:"additional_guest_amounts"`
	DataSource             string    `db:"data_source"`
	Restrictions           []byte    `db:"restrictions"`
}

func (r *rateRow) toDay() (rate.Day, error) {
	//nolint:exhaustruct
	day := rate.Day{
		HotelCode:    r.HotelCode,
		HotelName:    r.HotelName,
		InvTypeCode:  r.InvTypeCode,
		RatePlanCode: r.RatePlanCode,
		StartDate:    r.StartDate.UTC(),
		EndDate:      r.EndDate.UTC(),
		CurrencyCode: r.CurrencyCode,
		DataSource:   r.DataSource,
	}

	for _, field := range []struct {
		raw []byte
		dst any
	}{
		{r.Days, &day.Days},
		{r.BaseByGuestAmts, &day.BaseByGuestAmts},
		{r.AdditionalGuestAmounts, &day.AdditionalGuestAmounts},
		{r.Restrictions, &day.Restrictions},
	} {
		if len(field.raw) == 0 {
			continue
		}

		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return rate.Day{}, fmt.Errorf("decode rate %s/%s: %w", r.InvTypeCode, r.RatePlanCode, err)
		}
	}

	return day, nil
}

func rateArgs(d *rate.Day) ([]any, error) {
	encoded := make([]string, 0, 4) //nolint:gomnd

	for _, v := range []any{d.Days, d.BaseByGuestAmts, d.AdditionalGuestAmounts, d.Restrictions} {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode rate %s/%s: %w", d.InvTypeCode, d.RatePlanCode, err)
		}

		encoded = append(encoded, string(raw))
	}

	return []any{
		d.HotelCode, d.HotelName, d.InvTypeCode, d.RatePlanCode, d.StartDate.UTC(), d.EndDate.UTC(),
		nullJSON(encoded[0], "{}"), d.CurrencyCode, nullJSON(encoded[1], "[]"), nullJSON(encoded[2], "[]"),
		d.DataSource, nullJSON(encoded[3], "{}"),
	}, nil
}

func nullJSON(raw, empty string) string {
	if raw == "null" {
		return empty
	}

	return raw
}

func (db *DB) FindRates(ctx context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]rate.Day, error) {
	rows, err := db.pool.Query(ctx, selectRates, hotelCode, invTypeCode, calendar.Day(from), calendar.EndOfDay(to))
	if err != nil {
		return nil, fmt.Errorf("find rates: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[rateRow])
	if err != nil {
		return nil, fmt.Errorf("scan rates: %w", err)
	}

	days := make([]rate.Day, 0, len(found))

	for i := range found {
		day, err := found[i].toDay()
		if err != nil {
			return nil, err
		}

		days = append(days, day)
	}

	return days, nil
}

func (db *DB) UpsertRates(ctx context.Context, days []rate.Day) (rate.WriteResult, error) {
	if len(days) == 0 {
		return rate.WriteResult{}, nil
	}

	batch := &pgx.Batch{}

	for i := range days {
		args, err := rateArgs(&days[i])
		if err != nil {
			return rate.WriteResult{}, err
		}

		batch.Queue(upsertRate, args...)
	}

	var total rate.WriteResult

	err := db.sendUpserts(ctx, batch, len(days), func(inserted bool) {
		if inserted {
			total.Upserted++
		} else {
			total.Matched++
			total.Modified++
		}
	})
	if err != nil {
		return total, fmt.Errorf("upsert rates: %w", err)
	}

	return total, nil
}

func (db *DB) DeleteRates(ctx context.Context, hotelCode string) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM rate_days WHERE hotel_code = $1`, hotelCode)
	if err != nil {
		return 0, fmt.Errorf("delete rates of %s: %w", hotelCode, err)
	}

	return tag.RowsAffected(), nil
}

// DataSource returns the first recorded data source of a hotel, rates first.
func (db *DB) DataSource(ctx context.Context, hotelCode string) (string, error) {
	var source string

	err := db.pool.QueryRow(ctx, selectDataSource, hotelCode).Scan(&source)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("find data source of %s: %w", hotelCode, err)
	}

	return source, nil
}
