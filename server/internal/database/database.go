// Package database persists the leaderboard server's state in SQLite:
// user accounts, registered devices, and the per (user, day, source)
// usage ledger the merge engine maintains.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spilist/tokscale/internal/model"
	"github.com/spilist/tokscale/server/internal/merge"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// User represents a user account
type User struct {
	ID           string
	Username     string
	PasswordHash string
	APIKey       string
	CreatedAt    time.Time
}

// Device represents one submitting machine of a user
type Device struct {
	ID           string
	UserID       string
	Name         string
	LastSubmitAt *time.Time
	CreatedAt    time.Time
}

// Open opens a SQLite database connection
func Open(dbPath string) (*DB, error) {
	// Immediate transactions take the write lock at Begin, so the
	// read-modify-write in ApplySnapshot cannot deadlock against a
	// concurrent writer upgrading mid-transaction.
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_txlock=immediate", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors under concurrent load
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// Migrate creates the database schema
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		api_key TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		last_submit_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS usage_days (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		source TEXT NOT NULL,
		tokens INTEGER NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cache_read_tokens INTEGER NOT NULL DEFAULT 0,
		cache_write_tokens INTEGER NOT NULL DEFAULT 0,
		reasoning_tokens INTEGER NOT NULL DEFAULT 0,
		messages INTEGER NOT NULL DEFAULT 0,
		model_id TEXT,
		models TEXT,
		devices TEXT,
		PRIMARY KEY (user_id, date, source),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_usage_days_date ON usage_days(date);
	CREATE INDEX IF NOT EXISTS idx_devices_user ON devices(user_id);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expiry);
	`

	_, err := db.Exec(schema)
	return err
}

// CreateUser creates a new user
func (db *DB) CreateUser(user *User) error {
	_, err := db.Exec(
		`INSERT INTO users (id, username, password_hash, api_key, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.APIKey, user.CreatedAt,
	)
	return err
}

func (db *DB) getUser(where string, arg any) (*User, error) {
	user := &User{}
	err := db.QueryRow(
		`SELECT id, username, password_hash, api_key, created_at FROM users WHERE `+where,
		arg,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.APIKey, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(username string) (*User, error) {
	return db.getUser("username = ?", username)
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(id string) (*User, error) {
	return db.getUser("id = ?", id)
}

// GetUserByAPIKey retrieves a user by API key
func (db *DB) GetUserByAPIKey(apiKey string) (*User, error) {
	return db.getUser("api_key = ?", apiKey)
}

// GetOrCreateDevice gets an existing device or registers a new one
func (db *DB) GetOrCreateDevice(userID, deviceID, deviceName string) (*Device, error) {
	device := &Device{}
	var lastSubmitAt sql.NullTime
	err := db.QueryRow(
		`SELECT id, user_id, name, last_submit_at, created_at FROM devices WHERE id = ? AND user_id = ?`,
		deviceID, userID,
	).Scan(&device.ID, &device.UserID, &device.Name, &lastSubmitAt, &device.CreatedAt)

	if err == nil {
		if lastSubmitAt.Valid {
			device.LastSubmitAt = &lastSubmitAt.Time
		}
		return device, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now()
	_, err = db.Exec(
		`INSERT INTO devices (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		deviceID, userID, deviceName, now,
	)
	if err != nil {
		return nil, err
	}

	return &Device{ID: deviceID, UserID: userID, Name: deviceName, CreatedAt: now}, nil
}

// UpdateDeviceLastSubmit updates the last submission time for a device
func (db *DB) UpdateDeviceLastSubmit(deviceID string, at time.Time) error {
	_, err := db.Exec(`UPDATE devices SET last_submit_at = ? WHERE id = ?`, at, deviceID)
	return err
}

// ApplySnapshot merges a device's submitted snapshot into the user's
// ledger, one day at a time, inside a single immediate transaction so
// concurrent submissions for the same user serialize at the store.
// Returns the number of days touched.
func (db *DB) ApplySnapshot(userID, deviceID string, requested []model.Source, snapshot model.Graph) (int, error) {
	// SQLite allows one writer at a time and busy_timeout queues the
	// rest, so concurrent submissions serialize at this transaction.
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	merged := 0
	for _, daily := range snapshot.Contributions {
		incoming := merge.FromContribution(daily)
		if len(incoming) == 0 {
			continue
		}

		existing, err := loadDay(tx, userID, daily.Date)
		if err != nil {
			return 0, err
		}

		result := merge.MergeDay(existing, incoming, requested, deviceID)

		if err := saveDay(tx, userID, daily.Date, incoming, result); err != nil {
			return 0, err
		}
		merged++
	}

	return merged, tx.Commit()
}

func loadDay(tx *sql.Tx, userID, date string) (map[model.Source]merge.SourceBreakdown, error) {
	rows, err := tx.Query(`
		SELECT source, tokens, cost, input_tokens, output_tokens, cache_read_tokens,
		       cache_write_tokens, reasoning_tokens, messages, model_id, models, devices
		FROM usage_days WHERE user_id = ? AND date = ?
	`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cells := make(map[model.Source]merge.SourceBreakdown)
	for rows.Next() {
		var source string
		var cell merge.SourceBreakdown
		var modelID, models, devices sql.NullString
		if err := rows.Scan(&source, &cell.Tokens, &cell.Cost, &cell.Input, &cell.Output,
			&cell.CacheRead, &cell.CacheWrite, &cell.Reasoning, &cell.Messages,
			&modelID, &models, &devices); err != nil {
			return nil, err
		}
		cell.ModelID = modelID.String
		if models.Valid && models.String != "" {
			if err := json.Unmarshal([]byte(models.String), &cell.Models); err != nil {
				return nil, fmt.Errorf("decode models for %s/%s: %w", date, source, err)
			}
		}
		if devices.Valid && devices.String != "" {
			if err := json.Unmarshal([]byte(devices.String), &cell.Devices); err != nil {
				return nil, fmt.Errorf("decode devices for %s/%s: %w", date, source, err)
			}
		}
		cells[model.Source(source)] = cell
	}
	return cells, rows.Err()
}

// saveDay writes back the cells the merge changed: exactly the sources
// present in incoming. Untouched and requested-but-absent cells keep
// their stored rows as they are.
func saveDay(tx *sql.Tx, userID, date string, incoming map[model.Source]merge.DeviceAggregate, after map[model.Source]merge.SourceBreakdown) error {
	for source := range incoming {
		cell := after[source]

		modelsJSON, err := json.Marshal(cell.Models)
		if err != nil {
			return err
		}
		devicesJSON, err := json.Marshal(cell.Devices)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO usage_days
			(user_id, date, source, tokens, cost, input_tokens, output_tokens,
			 cache_read_tokens, cache_write_tokens, reasoning_tokens, messages, model_id, models, devices)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, date, source) DO UPDATE SET
				tokens = excluded.tokens,
				cost = excluded.cost,
				input_tokens = excluded.input_tokens,
				output_tokens = excluded.output_tokens,
				cache_read_tokens = excluded.cache_read_tokens,
				cache_write_tokens = excluded.cache_write_tokens,
				reasoning_tokens = excluded.reasoning_tokens,
				messages = excluded.messages,
				model_id = excluded.model_id,
				models = excluded.models,
				devices = excluded.devices
		`, userID, date, string(source), cell.Tokens, cell.Cost, cell.Input, cell.Output,
			cell.CacheRead, cell.CacheWrite, cell.Reasoning, cell.Messages,
			nullable(cell.ModelID), string(modelsJSON), string(devicesJSON))
		if err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// LeaderboardRow is one user's standing over a date window.
type LeaderboardRow struct {
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	TotalTokens int64   `json:"totalTokens"`
	TotalCost   float64 `json:"totalCost"`
	Messages    int64   `json:"messages"`
	ActiveDays  int     `json:"activeDays"`
}

// Leaderboard ranks users by cost over the window [since, until]. Empty
// bounds mean all time.
func (db *DB) Leaderboard(since, until string, limit int) ([]LeaderboardRow, error) {
	query := `
		SELECT u.id, u.username,
		       COALESCE(SUM(d.tokens), 0), COALESCE(SUM(d.cost), 0),
		       COALESCE(SUM(d.messages), 0), COUNT(DISTINCT d.date)
		FROM users u
		JOIN usage_days d ON d.user_id = u.id
	`
	var args []any
	where := ""
	if since != "" {
		where += " AND d.date >= ?"
		args = append(args, since)
	}
	if until != "" {
		where += " AND d.date <= ?"
		args = append(args, until)
	}
	if where != "" {
		query += " WHERE 1=1" + where
	}
	query += ` GROUP BY u.id, u.username ORDER BY SUM(d.cost) DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Username, &row.TotalTokens, &row.TotalCost,
			&row.Messages, &row.ActiveDays); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UserDay is one ledger cell with its date, for profile views.
type UserDay struct {
	Date string
	Cell merge.SourceBreakdown
	// Source tags which tool this cell belongs to.
	Source model.Source
}

// GetUserDays returns every ledger cell for a user, oldest first.
func (db *DB) GetUserDays(userID string) ([]UserDay, error) {
	rows, err := db.Query(`
		SELECT date, source, tokens, cost, input_tokens, output_tokens, cache_read_tokens,
		       cache_write_tokens, reasoning_tokens, messages, model_id, models, devices
		FROM usage_days WHERE user_id = ? ORDER BY date ASC, source ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserDay
	for rows.Next() {
		var day UserDay
		var source string
		var modelID, models, devices sql.NullString
		if err := rows.Scan(&day.Date, &source, &day.Cell.Tokens, &day.Cell.Cost,
			&day.Cell.Input, &day.Cell.Output, &day.Cell.CacheRead, &day.Cell.CacheWrite,
			&day.Cell.Reasoning, &day.Cell.Messages, &modelID, &models, &devices); err != nil {
			return nil, err
		}
		day.Source = model.Source(source)
		day.Cell.ModelID = modelID.String
		if models.Valid && models.String != "" {
			json.Unmarshal([]byte(models.String), &day.Cell.Models)
		}
		if devices.Valid && devices.String != "" {
			json.Unmarshal([]byte(devices.String), &day.Cell.Devices)
		}
		out = append(out, day)
	}
	return out, rows.Err()
}
