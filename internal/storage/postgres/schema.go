package postgres

const schema = `
CREATE TABLE IF NOT EXISTS inventory_days (
	hotel_code    TEXT        NOT NULL,
	hotel_name    TEXT        NOT NULL DEFAULT '',
	inv_type_code TEXT        NOT NULL,
	start_date    TIMESTAMPTZ NOT NULL,
	end_date      TIMESTAMPTZ NOT NULL,
	count         INTEGER     NOT NULL,
	status        TEXT        NOT NULL DEFAULT 'open',
	data_source   TEXT        NOT NULL DEFAULT '',
	sold          INTEGER,
	blocked       INTEGER,
	PRIMARY KEY (hotel_code, inv_type_code, start_date)
);

CREATE INDEX IF NOT EXISTS inventory_days_hotel_source ON inventory_days (hotel_code, data_source);

CREATE TABLE IF NOT EXISTS rate_days (
	hotel_code               TEXT        NOT NULL,
	hotel_name               TEXT        NOT NULL DEFAULT '',
	inv_type_code            TEXT        NOT NULL,
	rate_plan_code           TEXT        NOT NULL,
	start_date               TIMESTAMPTZ NOT NULL,
	end_date                 TIMESTAMPTZ NOT NULL,
	days                     JSONB       NOT NULL DEFAULT '{}',
	currency_code            TEXT        NOT NULL,
	base_by_guest_amts       JSONB       NOT NULL DEFAULT '[]',
	additional_guest_amounts JSONB       NOT NULL DEFAULT '[]',
	data_source              TEXT        NOT NULL DEFAULT '',
	restrictions             JSONB       NOT NULL DEFAULT '{}',
	PRIMARY KEY (hotel_code, inv_type_code, rate_plan_code, start_date, end_date)
);

CREATE INDEX IF NOT EXISTS rate_days_hotel_room_day ON rate_days (hotel_code, inv_type_code, start_date);
CREATE INDEX IF NOT EXISTS rate_days_hotel_source ON rate_days (hotel_code, data_source);
`

const selectInventory = `
SELECT hotel_code, hotel_name, inv_type_code, start_date, end_date, count, status, data_source, sold, blocked
FROM inventory_days
WHERE hotel_code = $1 AND inv_type_code = $2 AND start_date BETWEEN $3 AND $4
ORDER BY start_date`

// setStatus reports how many rows matched the day and how many actually changed.
const setStatus = `
WITH matched AS (
	SELECT hotel_code, inv_type_code, start_date, status
	FROM inventory_days
	WHERE hotel_code = $2 AND inv_type_code = $3 AND start_date BETWEEN $4 AND $5
	FOR UPDATE
), changed AS (
	UPDATE inventory_days d
	SET status = $1::text
	FROM matched m
	WHERE d.hotel_code = m.hotel_code AND d.inv_type_code = m.inv_type_code AND d.start_date = m.start_date
		AND m.status IS DISTINCT FROM $1::text
	RETURNING 1
)
SELECT (SELECT count(*) FROM matched), (SELECT count(*) FROM changed)`

// upsertInventory keeps stored status, name, source and counters when the incoming value is empty.
const upsertInventory = `
INSERT INTO inventory_days (hotel_code, hotel_name, inv_type_code, start_date, end_date, count, status, data_source, sold, blocked)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7::text, ''), 'open'), $8, $9, $10)
ON CONFLICT (hotel_code, inv_type_code, start_date) DO UPDATE SET
	end_date    = EXCLUDED.end_date,
	count       = EXCLUDED.count,
	status      = COALESCE(NULLIF($7::text, ''), inventory_days.status),
	hotel_name  = COALESCE(NULLIF(EXCLUDED.hotel_name, ''), inventory_days.hotel_name),
	data_source = COALESCE(NULLIF(EXCLUDED.data_source, ''), inventory_days.data_source),
	sold        = COALESCE(EXCLUDED.sold, inventory_days.sold),
	blocked     = COALESCE(EXCLUDED.blocked, inventory_days.blocked)
RETURNING (xmax = 0)`

const selectRates = `
SELECT hotel_code, hotel_name, inv_type_code, rate_plan_code, start_date, end_date, days, currency_code,
	base_by_guest_amts, additional_guest_amounts, data_source, restrictions
FROM rate_days
WHERE hotel_code = $1 AND inv_type_code = $2 AND start_date BETWEEN $3 AND $4
ORDER BY start_date, rate_plan_code`

const upsertRate = `
INSERT INTO rate_days (hotel_code, hotel_name, inv_type_code, rate_plan_code, start_date, end_date, days, currency_code,
	base_by_guest_amts, additional_guest_amounts, data_source, restrictions)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9::jsonb, $10::jsonb, $11, $12::jsonb)
ON CONFLICT (hotel_code, inv_type_code, rate_plan_code, start_date, end_date) DO UPDATE SET
	hotel_name               = COALESCE(NULLIF(EXCLUDED.hotel_name, ''), rate_days.hotel_name),
	days                     = EXCLUDED.days,
	currency_code            = EXCLUDED.currency_code,
	base_by_guest_amts       = EXCLUDED.base_by_guest_amts,
	additional_guest_amounts = EXCLUDED.additional_guest_amounts,
	data_source              = COALESCE(NULLIF(EXCLUDED.data_source, ''), rate_days.data_source),
	restrictions             = EXCLUDED.restrictions
RETURNING (xmax = 0)`

const selectDataSource = `
SELECT data_source FROM rate_days WHERE hotel_code = $1 AND data_source <> ''
UNION ALL
SELECT data_source FROM inventory_days WHERE hotel_code = $1 AND data_source <> ''
LIMIT 1`
