package repository

// Schema statements applied at startup. Postgres owns the operational
// snapshot tables, ClickHouse owns the training-vector archive.

// PostgresSchema creates the snapshot and profitable-log tables.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS market_logs (
        id                          UUID PRIMARY KEY,
        market                      TEXT NOT NULL,
        asset                       TEXT NOT NULL,
        quote                       TEXT NOT NULL,
        current_price               DOUBLE PRECISION NOT NULL,
        price_precision             INT NOT NULL,
        amount_precision            INT NOT NULL,
        obi                         DOUBLE PRECISION NOT NULL,
        changes                     JSONB NOT NULL,
        tf_5m                       JSONB,
        tf_15m                      JSONB,
        tf_1h                       JSONB,
        tf_4h                       JSONB,
        is_ranging                  BOOLEAN NOT NULL DEFAULT FALSE,
        vector                      DOUBLE PRECISION[] NOT NULL,
        was_profitable              BOOLEAN,
        max_price_change_percent    DOUBLE PRECISION NOT NULL DEFAULT 0,
        profitability_checked_at    TIMESTAMPTZ,
        time_to_reach               TEXT NOT NULL DEFAULT '',
        created_at                  TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_market_logs_created_at ON market_logs (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_market_logs_asset_created_at ON market_logs (asset, created_at)`,
	`CREATE TABLE IF NOT EXISTS profitable_market_logs (
        id                          UUID PRIMARY KEY,
        market                      TEXT NOT NULL,
        asset                       TEXT NOT NULL,
        quote                       TEXT NOT NULL,
        current_price               DOUBLE PRECISION NOT NULL,
        price_precision             INT NOT NULL,
        amount_precision            INT NOT NULL,
        obi                         DOUBLE PRECISION NOT NULL,
        changes                     JSONB NOT NULL,
        tf_5m                       JSONB,
        tf_15m                      JSONB,
        tf_1h                       JSONB,
        tf_4h                       JSONB,
        is_ranging                  BOOLEAN NOT NULL DEFAULT FALSE,
        vector                      DOUBLE PRECISION[] NOT NULL,
        was_profitable              BOOLEAN,
        max_price_change_percent    DOUBLE PRECISION NOT NULL DEFAULT 0,
        profitability_checked_at    TIMESTAMPTZ,
        time_to_reach               TEXT NOT NULL DEFAULT '',
        created_at                  TIMESTAMPTZ NOT NULL,
        analysis_date               TIMESTAMPTZ NOT NULL,
        analysis_type               TEXT NOT NULL,
        original_log_id             UUID NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_profitable_logs_asset ON profitable_market_logs (asset)`,
	`CREATE INDEX IF NOT EXISTS idx_profitable_logs_analysis_date ON profitable_market_logs (analysis_date)`,
}

// ClickHouseSchema creates the training-vector archive table.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS training_vectors (
        created_at          DateTime64(3) CODEC(Delta, ZSTD(3)),
        asset               LowCardinality(String),
        analysis_type       LowCardinality(String),
        was_profitable      UInt8,
        max_change_percent  Float64 CODEC(ZSTD(3)),
        vector              Array(Float64) CODEC(ZSTD(3))
    ) ENGINE = MergeTree
    PARTITION BY toYYYYMM(created_at)
    ORDER BY (asset, created_at)`,
}
