package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"autoads_bot/internal/model"
	"autoads_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertListing inserts a listing or refreshes its content by link.
// The original row id is preserved on conflict so insertion order,
// and therefore the last-seen tail, stays chronological.
func (s *SQLite) UpsertListing(ctx context.Context, l *model.Listing) error {
	contacts, err := json.Marshal(l.Contacts)
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO listings (link, title, year, engine, mileage, transmission, fuel_type,
		                       drive_type, price, condition, author, wheel, registration,
		                       locality, contacts, image, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(link) DO UPDATE SET
		   title = excluded.title, year = excluded.year, engine = excluded.engine,
		   mileage = excluded.mileage, transmission = excluded.transmission,
		   fuel_type = excluded.fuel_type, drive_type = excluded.drive_type,
		   price = excluded.price, condition = excluded.condition,
		   author = excluded.author, wheel = excluded.wheel,
		   registration = excluded.registration, locality = excluded.locality,
		   contacts = excluded.contacts, image = excluded.image, date = excluded.date`,
		l.Link, l.Title, l.Year, l.Engine, l.Mileage, l.Transmission, l.FuelType,
		l.DriveType, l.Price, l.Condition, l.Author, l.Wheel, l.Registration,
		l.Locality, string(contacts), l.Image, l.Date, now,
	)
	if err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}
	return nil
}

// ListingExists reports whether a listing with the given link is stored.
func (s *SQLite) ListingExists(ctx context.Context, link string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE link = ?`, link,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check listing: %w", err)
	}
	return count > 0, nil
}

// LastLinks returns the links of the n most recently inserted listings,
// newest first.
func (s *SQLite) LastLinks(ctx context.Context, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT link FROM listings ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query last links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// CountListings returns the total number of stored listings.
func (s *SQLite) CountListings(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return count, nil
}

// EvictListings deletes oldest listings so that at most keep rows remain.
func (s *SQLite) EvictListings(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM listings WHERE id NOT IN
		   (SELECT id FROM listings ORDER BY id DESC LIMIT ?)`, keep,
	)
	if err != nil {
		return fmt.Errorf("evict listings: %w", err)
	}
	return nil
}

// CreateUser inserts a user if not already present.
func (s *SQLite) CreateUser(ctx context.Context, userID int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, is_active, current_step, created_at)
		 VALUES (?, 1, ?, ?)`,
		userID, string(model.StepNone), now,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns a single user with their filter sets.
func (s *SQLite) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, is_active, current_step, created_at FROM users WHERE user_id = ?`,
		userID,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	u.Filters, err = s.GetFilters(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListActiveUsers returns all users eligible to receive notifications,
// filter sets included.
func (s *SQLite) ListActiveUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, is_active, current_step, created_at FROM users
		 WHERE is_active = 1 ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		users[i].Filters, err = s.GetFilters(ctx, users[i].UserID)
		if err != nil {
			return nil, err
		}
	}
	return users, nil
}

// SetActive toggles notification delivery for a user.
func (s *SQLite) SetActive(ctx context.Context, userID int64, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_active = ? WHERE user_id = ?`, boolToInt(active), userID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// SetStep records which filter dimension the user is currently editing.
func (s *SQLite) SetStep(ctx context.Context, userID int64, step model.Step) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET current_step = ? WHERE user_id = ?`, string(step), userID,
	)
	if err != nil {
		return fmt.Errorf("set step: %w", err)
	}
	return nil
}

// DeleteUser removes a user and their filter rows.
func (s *SQLite) DeleteUser(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_filters WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete user filters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return tx.Commit()
}

// AddFilterValue inserts one value into a user's dimension set.
func (s *SQLite) AddFilterValue(ctx context.Context, userID int64, dim model.Dimension, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_filters (user_id, dimension, value) VALUES (?, ?, ?)`,
		userID, string(dim), value,
	)
	if err != nil {
		return fmt.Errorf("add filter value: %w", err)
	}
	return nil
}

// RemoveFilterValue deletes one value from a user's dimension set.
func (s *SQLite) RemoveFilterValue(ctx context.Context, userID int64, dim model.Dimension, value string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_filters WHERE user_id = ? AND dimension = ? AND value = ?`,
		userID, string(dim), value,
	)
	if err != nil {
		return fmt.Errorf("remove filter value: %w", err)
	}
	return nil
}

// HasFilterValue reports whether a value is present in a user's dimension set.
func (s *SQLite) HasFilterValue(ctx context.Context, userID int64, dim model.Dimension, value string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_filters WHERE user_id = ? AND dimension = ? AND value = ?`,
		userID, string(dim), value,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check filter value: %w", err)
	}
	return count > 0, nil
}

// GetFilters returns every filter set of a user keyed by dimension.
func (s *SQLite) GetFilters(ctx context.Context, userID int64) (model.FilterSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dimension, value FROM user_filters WHERE user_id = ? ORDER BY dimension, value`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fs := model.FilterSet{}
	for rows.Next() {
		var dim, value string
		if err := rows.Scan(&dim, &value); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		fs[model.Dimension(dim)] = append(fs[model.Dimension(dim)], value)
	}
	return fs, rows.Err()
}

// ResetFilters clears every filter set of a user, keeping the user record.
func (s *SQLite) ResetFilters(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_filters WHERE user_id = ?`, userID,
	)
	if err != nil {
		return fmt.Errorf("reset filters: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var isActive int
	var step string
	var created sql.NullString
	err := row.Scan(&u.UserID, &isActive, &step, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Active = isActive == 1
	u.CurrentStep = model.Step(step)
	if created.Valid {
		u.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &u, nil
}
