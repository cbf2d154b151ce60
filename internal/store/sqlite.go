package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/types"
	_ "modernc.org/sqlite"
)

// Settings keys for the persisted cooldown state.
const (
	KeyLastSFoodTime = "last_s_food_time"
	KeyLastPFoodTime = "last_p_food_time"
)

// SQLiteStore represents the SQLite-backed diary database.
type SQLiteStore struct {
	db *sql.DB

	// cooldownMu serializes cooldown read-modify-write cycles in this process.
	cooldownMu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dataSourceName(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// dataSourceName adds the connection parameters every pooled connection
// needs. Transactions begin IMMEDIATE so a cooldown read-modify-write holds
// the write lock from its first read, across processes sharing the file.
func dataSourceName(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_txlock=immediate"
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Entries ---

const entryColumns = `id, food, entry_date, logged_at, systolic_bp, sick, meal_type, calories, bowel_score`

// CreateEntry inserts a diary entry.
func (s *SQLiteStore) CreateEntry(ctx context.Context, e types.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Food, e.Date, formatTime(e.Timestamp), nullInt(e.SystolicBP), boolInt(e.Sick),
		string(e.MealType), e.Calories, e.BowelScore)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// GetEntry returns the entry with the given ID or ErrNotFound.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*types.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns entries matching filter, newest date first.
func (s *SQLiteStore) ListEntries(ctx context.Context, filter types.EntryFilter) ([]types.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries`
	switch filter {
	case types.FilterSick:
		query += ` WHERE sick = 1`
	case types.FilterOkay:
		query += ` WHERE sick = 0`
	}
	query += ` ORDER BY entry_date DESC, logged_at DESC`

	return s.queryEntries(ctx, query)
}

// ListEntriesByDate returns the entries logged for one calendar date, oldest first.
func (s *SQLiteStore) ListEntriesByDate(ctx context.Context, date string) ([]types.Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE entry_date = ? ORDER BY logged_at ASC`, date)
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]types.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []types.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// DeleteEntry removes an entry. Favorites saved from it are kept.
func (s *SQLiteStore) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireAffected(res)
}

// ClearEntries removes every entry and returns how many were deleted.
func (s *SQLiteStore) ClearEntries(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("clear entries: %w", err)
	}
	return res.RowsAffected()
}

// scanEntry scans a row into an Entry.
func scanEntry(scanner interface{ Scan(...any) error }) (*types.Entry, error) {
	var e types.Entry
	var loggedAt, mealType string
	var bp sql.NullInt64
	var sick int

	if err := scanner.Scan(&e.ID, &e.Food, &e.Date, &loggedAt, &bp, &sick, &mealType, &e.Calories, &e.BowelScore); err != nil {
		return nil, err
	}

	e.Timestamp = parseTime(loggedAt)
	e.Sick = sick != 0
	e.MealType = types.MealType(mealType)
	if bp.Valid {
		v := int(bp.Int64)
		e.SystolicBP = &v
	}
	return &e, nil
}

// --- Favorites ---

// CreateFavorite saves a favorite. A second favorite with the same food
// (case-insensitive) and date returns ErrDuplicateFavorite.
func (s *SQLiteStore) CreateFavorite(ctx context.Context, f types.Favorite) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (id, entry_id, food, food_key, entry_date, meal_type, calories, systolic_bp, bowel_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.EntryID, f.Food, strings.ToLower(f.Food), f.Date, string(f.MealType), f.Calories,
		nullInt(f.SystolicBP), f.BowelScore, formatTime(f.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateFavorite
		}
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// ListFavorites returns favorites in the order they were saved.
func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]types.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, food, entry_date, meal_type, calories, systolic_bp, bowel_score, created_at
		FROM favorites ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	favorites := []types.Favorite{}
	for rows.Next() {
		var f types.Favorite
		var mealType, createdAt string
		var bp sql.NullInt64
		if err := rows.Scan(&f.ID, &f.EntryID, &f.Food, &f.Date, &mealType, &f.Calories, &bp, &f.BowelScore, &createdAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		f.MealType = types.MealType(mealType)
		f.CreatedAt = parseTime(createdAt)
		if bp.Valid {
			v := int(bp.Int64)
			f.SystolicBP = &v
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// DeleteFavorite removes a favorite.
func (s *SQLiteStore) DeleteFavorite(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return requireAffected(res)
}

// --- Settings ---

// GetSetting returns a stored value and whether it exists.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	return getSetting(ctx, s.db, key)
}

// SetSetting upserts a value.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	return setSetting(ctx, s.db, key, value)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSetting(ctx context.Context, q execQuerier, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func setSetting(ctx context.Context, q execQuerier, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// --- Cooldown ---

// LoadCooldown reads the persisted cooldown timestamps. Missing or
// unparseable values read as no prior entry.
func (s *SQLiteStore) LoadCooldown(ctx context.Context) (engine.CooldownState, error) {
	return loadCooldown(ctx, s.db)
}

// UpdateCooldown runs fn inside a transaction, serialized with other
// updates from this process, and persists its result when changed.
func (s *SQLiteStore) UpdateCooldown(ctx context.Context, fn engine.UpdateFunc) error {
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := loadCooldown(ctx, tx)
	if err != nil {
		return err
	}

	next, changed := fn(current)
	if !changed {
		return tx.Commit()
	}

	if next.LastS != nil {
		if err := setSetting(ctx, tx, KeyLastSFoodTime, engine.FormatTimestamp(next.LastS)); err != nil {
			return err
		}
	}
	if next.LastP != nil {
		if err := setSetting(ctx, tx, KeyLastPFoodTime, engine.FormatTimestamp(next.LastP)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func loadCooldown(ctx context.Context, q execQuerier) (engine.CooldownState, error) {
	var state engine.CooldownState
	s, ok, err := getSetting(ctx, q, KeyLastSFoodTime)
	if err != nil {
		return state, err
	}
	if ok {
		state.LastS = engine.ParseTimestamp(s)
	}
	p, ok, err := getSetting(ctx, q, KeyLastPFoodTime)
	if err != nil {
		return state, err
	}
	if ok {
		state.LastP = engine.ParseTimestamp(p)
	}
	return state, nil
}

// --- Stats ---

// GetStats returns aggregate store statistics
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&stats.EntryCount); err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites`).Scan(&stats.FavoriteCount); err != nil {
		return nil, fmt.Errorf("count favorites: %w", err)
	}
	return &stats, nil
}

// --- helpers ---

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
