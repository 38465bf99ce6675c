package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const pgNumericOutOfRange = "22003"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_items (
		id       TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		position INTEGER NOT NULL,
		name     TEXT NOT NULL,
		price    BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_meta (
		id      INTEGER PRIMARY KEY,
		version BIGINT NOT NULL
	)`,
	`INSERT INTO catalog_meta (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,
}

// OpenDB maps a store driver name from config onto a database/sql driver.
func OpenDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "postgres":
		return sql.Open("pgx", dsn)
	case "sqlite":
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		// one connection: sqlite has a single writer and ":memory:" is per connection
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		for _, stmt := range schema {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// SeedIfEmpty inserts seed when the items table has no rows. It reports
// whether anything was written.
func (s *SQLStore) SeedIfEmpty(ctx context.Context, seed Seed) (bool, error) {
	var seeded bool

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var n int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO catalog_items (id, category, position, name, price)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		st := NewState(seed, nil)
		for _, c := range []struct {
			cat   Category
			items Catalog
		}{{CategoryPrimary, st.Primary}, {CategorySecondary, st.Secondary}} {
			for pos, it := range c.items {
				if _, err := stmt.ExecContext(ctx, it.ID, string(c.cat), pos, it.Name, it.Price); err != nil {
					return err
				}
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		seeded = true
		return nil
	})

	return seeded, err
}

func (s *SQLStore) Snapshot(ctx context.Context) (State, error) {
	var st State

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var version int64
		if err := tx.QueryRowContext(ctx, `SELECT version FROM catalog_meta WHERE id = 1`).Scan(&version); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, category, name, price
			FROM catalog_items
			ORDER BY category ASC, position ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		st = State{Version: uint64(version), Primary: Catalog{}, Secondary: Catalog{}}
		for rows.Next() {
			var (
				it  Item
				cat string
			)
			if err := rows.Scan(&it.ID, &cat, &it.Name, &it.Price); err != nil {
				return err
			}
			switch Category(cat) {
			case CategoryPrimary:
				st.Primary = append(st.Primary, it)
			case CategorySecondary:
				st.Secondary = append(st.Secondary, it)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return tx.Commit()
	})

	if err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *SQLStore) AdjustPrice(ctx context.Context, id string, delta int64) (Item, uint64, error) {
	var (
		it      Item
		version int64
	)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var price int64
		err = tx.QueryRowContext(ctx, `
			SELECT price FROM catalog_items WHERE id = $1 AND category = $2
		`, id, string(CategoryPrimary)).Scan(&price)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}
		if _, err := addPrice(price, delta); err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE catalog_items SET price = price + $1
			WHERE id = $2 AND category = $3
			RETURNING id, name, price
		`, delta, id, string(CategoryPrimary)).Scan(&it.ID, &it.Name, &it.Price)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE catalog_meta SET version = version + 1 WHERE id = 1 RETURNING version
		`).Scan(&version)
		if err != nil {
			return err
		}

		return tx.Commit()
	})

	if isOutOfRange(err) {
		return Item{}, 0, ErrPriceOverflow
	}
	if err != nil {
		return Item{}, 0, err
	}
	return it, uint64(version), nil
}

func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgNumericOutOfRange
}
