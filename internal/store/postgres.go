package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentrix/idxr-engine/pkg/models"
)

// PostgresStore is a CandidateStore adapter over a Postgres-held
// corpus, grounded on the teacher's internal/db/postgres.go pool +
// context idiom. It issues each of three cheap, indexed blocking
// queries (exact taxpayer ID, exact date of birth, surname prefix) whose
// key the query carries and unions the results, same as MemoryStore.
type PostgresStore struct {
	pool *pgxpool.Pool
	cap  int
}

// Connect dials Postgres with a bounded exponential backoff — the
// teacher dials once and logs a warning on failure (cmd/engine/main.go);
// this adapter additionally retries transient connection failures
// before giving up, using the retry idiom steveyegge-beads applies to
// its own external dependencies.
func Connect(ctx context.Context, connStr string, lookupCap int) (*PostgresStore, error) {
	var pool *pgxpool.Pool

	op := func() error {
		p, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("unable to connect to candidate store database: %w", err)
	}

	log.Println("Connected to Postgres-backed candidate store")
	if lookupCap <= 0 {
		lookupCap = DefaultCap
	}
	return &PostgresStore{pool: pool, cap: lookupCap}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Lookup issues the blocking queries directly against Postgres rather
// than reindexing in memory. The SQL only blocks on exact keys; the DOB
// hard pre-filter is applied in Go to the unioned rows.
func (s *PostgresStore) Lookup(ctx context.Context, query models.IdentityRecord) ([]models.StoredIdentity, error) {
	seen := make(map[string]models.StoredIdentity)

	const baseSQL = `
		SELECT identity_key, given_name, surname, middle_name, date_of_birth,
		       taxpayer_id, driver_id, phone, email,
		       street_number, street_name, unit, city, state, postal_code,
		       source_systems, created_at, updated_at, active
		FROM stored_identities WHERE %s LIMIT $1`

	run := func(predicate string, arg interface{}) error {
		sql := fmt.Sprintf(baseSQL, predicate)
		rows, err := s.pool.Query(ctx, sql, s.cap, arg)
		if err != nil {
			return fmt.Errorf("candidate lookup query failed: %w", err)
		}
		defer rows.Close()
		return scanInto(rows, seen)
	}

	if query.TaxpayerID != "" {
		if err := run("taxpayer_id = $2", query.TaxpayerID); err != nil {
			return nil, err
		}
	}
	if query.DateOfBirth != "" {
		if err := run("date_of_birth = $2", query.DateOfBirth); err != nil {
			return nil, err
		}
	}
	if query.Surname != "" {
		px := query.Surname
		if len(px) > surnamePrefixLen {
			px = px[:surnamePrefixLen]
		}
		if err := run("surname ILIKE $2 || '%'", px); err != nil {
			return nil, err
		}
	}

	out := make([]models.StoredIdentity, 0, len(seen))
	for _, ident := range seen {
		if withinDOBWindow(query.DateOfBirth, ident.Normalized.DateOfBirth) {
			out = append(out, ident)
		}
	}
	if len(out) > s.cap {
		out = out[:s.cap]
	}
	return out, nil
}

func scanInto(rows pgx.Rows, into map[string]models.StoredIdentity) error {
	for rows.Next() {
		var (
			ident                                             models.StoredIdentity
			given, surname, middle, dob, taxID, driverID       string
			phone, email                                       string
			streetNum, streetName, unit, city, state, postcode string
			sources                                            []string
			createdAt, updatedAt                                time.Time
			active                                              bool
		)
		if err := rows.Scan(
			&ident.IdentityKey, &given, &surname, &middle, &dob,
			&taxID, &driverID, &phone, &email,
			&streetNum, &streetName, &unit, &city, &state, &postcode,
			&sources, &createdAt, &updatedAt, &active,
		); err != nil {
			return fmt.Errorf("scanning stored identity row: %w", err)
		}

		rec := models.IdentityRecord{
			GivenName: given, Surname: surname, MiddleName: middle,
			DateOfBirth: dob, TaxpayerID: taxID, DriverID: driverID,
			Phone: phone, Email: email,
			Address: models.Address{
				StreetNumber: streetNum, StreetName: streetName, Unit: unit,
				City: city, State: state, PostalCode: postcode,
			},
		}
		ident.Record = rec
		ident.Normalized = rec
		ident.SourceSystems = sources
		ident.CreatedAt = createdAt
		ident.UpdatedAt = updatedAt
		ident.Active = active

		into[ident.IdentityKey] = ident
	}
	return rows.Err()
}
