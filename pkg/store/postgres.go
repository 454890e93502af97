// Package store persists campground records in PostgreSQL with
// create-or-overwrite semantics keyed on the record id.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/campwatch/campground-ingest/pkg/catalog"
	"github.com/campwatch/campground-ingest/pkg/logging"
)

var (
	upsertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_upserts_total",
		Help: "Total campground upserts executed",
	})

	commitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_commits_total",
		Help: "Total commit boundaries closed",
	})
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS campgrounds (
		id                       TEXT PRIMARY KEY,
		type                     TEXT,
		link_self                TEXT,
		name                     TEXT,
		latitude                 DOUBLE PRECISION,
		longitude                DOUBLE PRECISION,
		region_name              TEXT,
		administrative_area      TEXT,
		nearest_city_name        TEXT,
		accommodation_type_names TEXT[] DEFAULT '{}',
		bookable                 BOOLEAN DEFAULT FALSE,
		camper_types             TEXT[] DEFAULT '{}',
		operator                 TEXT,
		photo_url                TEXT,
		photo_urls               TEXT[] DEFAULT '{}',
		photos_count             INTEGER DEFAULT 0,
		rating                   DOUBLE PRECISION,
		reviews_count            INTEGER DEFAULT 0,
		slug                     TEXT,
		price_low                DOUBLE PRECISION,
		price_high               DOUBLE PRECISION,
		availability_updated_at  TIMESTAMPTZ
	)`

const upsertSQL = `
	INSERT INTO campgrounds (
		id, type, link_self, name, latitude, longitude,
		region_name, administrative_area, nearest_city_name,
		accommodation_type_names, bookable, camper_types, operator,
		photo_url, photo_urls, photos_count, rating, reviews_count,
		slug, price_low, price_high, availability_updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	ON CONFLICT (id) DO UPDATE SET
		type = EXCLUDED.type,
		link_self = EXCLUDED.link_self,
		name = EXCLUDED.name,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		region_name = EXCLUDED.region_name,
		administrative_area = EXCLUDED.administrative_area,
		nearest_city_name = EXCLUDED.nearest_city_name,
		accommodation_type_names = EXCLUDED.accommodation_type_names,
		bookable = EXCLUDED.bookable,
		camper_types = EXCLUDED.camper_types,
		operator = EXCLUDED.operator,
		photo_url = EXCLUDED.photo_url,
		photo_urls = EXCLUDED.photo_urls,
		photos_count = EXCLUDED.photos_count,
		rating = EXCLUDED.rating,
		reviews_count = EXCLUDED.reviews_count,
		slug = EXCLUDED.slug,
		price_low = EXCLUDED.price_low,
		price_high = EXCLUDED.price_high,
		availability_updated_at = EXCLUDED.availability_updated_at`

// EnsureSchema creates the campgrounds table if it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Postgres writes records to PostgreSQL. One Postgres value is owned by a
// single ingestion run: upserts accumulate in an open transaction and
// Commit closes the current boundary. Not safe for concurrent use.
type Postgres struct {
	pool   *pgxpool.Pool
	tx     pgx.Tx
	logger zerolog.Logger
}

// NewPostgres creates a sink backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool:   pool,
		logger: logging.NewLogger("store"),
	}
}

// Upsert writes one record, creating it or overwriting every field except
// the id. The write is a single conflict-resolving statement, so a record
// is either fully applied or not applied at all.
func (p *Postgres) Upsert(ctx context.Context, rec catalog.Record) error {
	if p.tx == nil {
		tx, err := p.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		p.tx = tx
	}

	_, err := p.tx.Exec(ctx, upsertSQL,
		rec.ID, rec.Type, rec.SelfLink, rec.Name, rec.Latitude, rec.Longitude,
		rec.RegionName, rec.AdministrativeArea, rec.NearestCityName,
		rec.AccommodationTypeNames, rec.Bookable, rec.CamperTypes, rec.Operator,
		rec.PhotoURL, rec.PhotoURLs, rec.PhotosCount, rec.Rating, rec.ReviewsCount,
		rec.Slug, rec.PriceLow, rec.PriceHigh, rec.AvailabilityUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert campground %s: %w", rec.ID, err)
	}

	upsertsTotal.Inc()
	return nil
}

// Commit closes the current commit boundary. A no-op when nothing was
// written since the last boundary.
func (p *Postgres) Commit(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}

	err := p.tx.Commit(ctx)
	p.tx = nil
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	commitsTotal.Inc()
	return nil
}

// Close rolls back any uncommitted writes and releases the session.
// Safe to call on every exit path.
func (p *Postgres) Close(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}

	err := p.tx.Rollback(ctx)
	p.tx = nil
	if err != nil && err != pgx.ErrTxClosed {
		p.logger.Warn().Err(err).Msg("Rollback on close failed")
		return err
	}
	return nil
}
