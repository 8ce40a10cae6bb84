package datastore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codehubbers/hubbergram/pkg/crypto"
	"github.com/codehubbers/hubbergram/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Options tunes a ProviderFactory.
type Options struct {
	// Passphrase is applied as PRAGMA key before any other statement.
	// Only cipher-enabled SQLite builds honor it; stock builds treat the
	// pragma as a no-op.
	Passphrase string

	// MaxLoginAttempts locks an account after that many consecutive failed
	// logins. 0 disables the lockout.
	MaxLoginAttempts int
}

type baseProvider struct {
	DB
	maxLoginAttempts int
}

func (p *baseProvider) Close() error {
	return nil
}

type nonTxProvider struct {
	baseProvider
}

type txProvider struct {
	baseProvider
	tx *sql.Tx
}

func (c *txProvider) Rollback() error {
	return c.tx.Rollback()
}

func (c *txProvider) Commit() error {
	return c.tx.Commit()
}

// ProviderFactory provides database access for all Hubbergram entities.
type ProviderFactory struct {
	DB   *sql.DB
	opts Options
}

func (sf *ProviderFactory) NonTx() DataStore {
	return &nonTxProvider{
		baseProvider: baseProvider{
			DB:               sf.DB,
			maxLoginAttempts: sf.opts.MaxLoginAttempts,
		},
	}
}

func (sf *ProviderFactory) Tx(ctx context.Context) (DataStoreTx, error) {
	tx, err := sf.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &txProvider{
		baseProvider: baseProvider{
			DB:               tx,
			maxLoginAttempts: sf.opts.MaxLoginAttempts,
		},
		tx: tx,
	}, nil
}

// NewProviderFactory opens (or creates) a SQLite database and runs migrations.
func NewProviderFactory(dbPath string, opts Options) (*ProviderFactory, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("datastore: open DB: %w", err)
	}

	ctx := context.Background()

	if opts.Passphrase != "" {
		quoted := strings.ReplaceAll(opts.Passphrase, "'", "''")
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA key = '%s'", quoted)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("datastore: set key: %w", err)
		}
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: set WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: enable FK: %w", err)
	}
	// Set busy timeout to avoid "database is locked" under concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: set busy_timeout: %w", err)
	}

	s := &ProviderFactory{DB: db, opts: opts}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (sf *ProviderFactory) Close() error {
	return sf.DB.Close()
}

func (sf *ProviderFactory) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		username          TEXT    NOT NULL UNIQUE CHECK(length(username) > 0 AND length(username) <= 32),
		email             TEXT    NOT NULL UNIQUE,
		password_hash     TEXT    NOT NULL,
		password_salt     TEXT    NOT NULL,
		role              INTEGER NOT NULL DEFAULT 0 CHECK(role >= 0 AND role <= 1),
		location_consent  INTEGER NOT NULL DEFAULT 0,
		latitude          REAL    NOT NULL DEFAULT 0.0,
		longitude         REAL    NOT NULL DEFAULT 0.0,
		location_updated  INTEGER NOT NULL DEFAULT 0,
		location_duration INTEGER NOT NULL DEFAULT 0,
		failed_logins     INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS messages (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id   INTEGER NOT NULL REFERENCES users(id),
		receiver_id INTEGER NOT NULL DEFAULT 0,
		group_id    INTEGER NOT NULL DEFAULT 0,
		content     TEXT    NOT NULL,
		media_path  TEXT    NOT NULL DEFAULT '',
		timestamp   INTEGER NOT NULL,
		encrypted   INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS groups (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL,
		admin_id   INTEGER NOT NULL REFERENCES users(id),
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
	`
	ctx := context.Background()
	if err := sf.ensureSchemaMigrations(ctx); err != nil {
		return err
	}
	currentVersion, err := sf.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	migrations := []struct {
		version    int
		statements []string
	}{
		{
			version:    1,
			statements: []string{schema},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := sf.DB.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("datastore: migrate: %w", err)
			}
		}
		if err := sf.setSchemaVersion(ctx, m.version); err != nil {
			return err
		}
	}
	return nil
}

func (sf *ProviderFactory) ensureSchemaMigrations(ctx context.Context) error {
	if _, err := sf.DB.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("datastore: create schema_migrations: %w", err)
	}
	var count int
	if err := sf.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("datastore: check schema_migrations: %w", err)
	}
	if count == 0 {
		if _, err := sf.DB.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (0)"); err != nil {
			return fmt.Errorf("datastore: init schema_migrations: %w", err)
		}
	}
	return nil
}

func (sf *ProviderFactory) getSchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := sf.DB.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("datastore: read schema version: %w", err)
	}
	return version, nil
}

func (sf *ProviderFactory) setSchemaVersion(ctx context.Context, version int) error {
	if _, err := sf.DB.ExecContext(ctx, "UPDATE schema_migrations SET version = ?", version); err != nil {
		return fmt.Errorf("datastore: update schema version: %w", err)
	}
	return nil
}

func parseDBTime(value string) (time.Time, error) {
	return time.ParseInLocation(dbTimeLayout, value, time.UTC)
}

const userColumns = "id, username, email, password_hash, password_salt, role, location_consent, latitude, longitude, location_updated, location_duration, failed_logins, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var roleInt, consentInt int
	var locationUpdated int64
	var createdAt string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.PasswordSalt,
		&roleInt, &consentInt, &u.Latitude, &u.Longitude, &locationUpdated,
		&u.LocationDuration, &u.FailedLogins, &createdAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(roleInt)
	u.LocationConsent = consentInt != 0
	if locationUpdated > 0 {
		u.LocationUpdated = time.Unix(locationUpdated, 0).UTC()
	}
	parsed, err := parseDBTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parsed
	return u, nil
}

// ---- Users ----

// CreateUser validates and inserts a new user, returning the assigned ID.
// Uniqueness conflicts on username or email surface as errors.
func (s *baseProvider) CreateUser(username, email, password string, role model.Role) (int64, error) {
	if err := model.ValidateUsername(username); err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}
	if err := model.ValidateEmail(email); err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}
	if err := model.ValidatePassword(password); err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}
	if !role.Valid() {
		return 0, fmt.Errorf("datastore: create user: %w", model.ErrInvalidRole)
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}
	hash := crypto.HashPassword(password, salt)

	res, err := s.ExecContext(context.Background(),
		"INSERT INTO users (username, email, password_hash, password_salt, role) VALUES (?, ?, ?, ?, ?)",
		username, email, hash, hex.EncodeToString(salt), int(role))
	if err != nil {
		return 0, fmt.Errorf("datastore: create user: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// GetUserByUsername retrieves a user by username. Missing users are (nil, nil).
func (s *baseProvider) GetUserByUsername(username string) (*model.User, error) {
	row := s.QueryRowContext(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: get user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID. Missing users are (nil, nil).
func (s *baseProvider) GetUserByID(id int64) (*model.User, error) {
	row := s.QueryRowContext(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: get user: %w", err)
	}
	return u, nil
}

// HasUsers reports whether any user exists, used for first-run bootstrap.
func (s *baseProvider) HasUsers() (bool, error) {
	var count int
	if err := s.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return false, fmt.Errorf("datastore: count users: %w", err)
	}
	return count > 0, nil
}

// AuthenticateUser verifies credentials and maintains the failed-login
// counter in the same transaction. Wrong credentials and locked accounts
// both commit their counter update before returning the error.
func (s *txProvider) AuthenticateUser(username, password string) (*model.User, error) {
	ctx := context.Background()

	defer func() { _ = s.Rollback() }()

	row := s.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: authenticate: %w", err)
	}

	if s.maxLoginAttempts > 0 && u.FailedLogins >= s.maxLoginAttempts {
		return nil, ErrAccountLocked
	}

	salt, err := hex.DecodeString(u.PasswordSalt)
	if err != nil {
		return nil, fmt.Errorf("datastore: authenticate: %w", err)
	}

	if !crypto.VerifyPassword(password, salt, u.PasswordHash) {
		if _, err := s.ExecContext(ctx, "UPDATE users SET failed_logins = failed_logins + 1 WHERE id = ?", u.ID); err != nil {
			return nil, fmt.Errorf("datastore: record failed login: %w", err)
		}
		if err := s.Commit(); err != nil {
			return nil, fmt.Errorf("datastore: commit: %w", err)
		}
		return nil, ErrInvalidCredentials
	}

	if u.FailedLogins > 0 {
		if _, err := s.ExecContext(ctx, "UPDATE users SET failed_logins = 0 WHERE id = ?", u.ID); err != nil {
			return nil, fmt.Errorf("datastore: reset failed logins: %w", err)
		}
		u.FailedLogins = 0
	}
	if err := s.Commit(); err != nil {
		return nil, fmt.Errorf("datastore: commit: %w", err)
	}
	return u, nil
}

// ---- Messages ----

// SaveMessage validates and inserts a message, assigning its ID and timestamp.
func (s *baseProvider) SaveMessage(msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("datastore: message failed validation: %w", err)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	encryptedInt := 0
	if msg.Encrypted {
		encryptedInt = 1
	}
	res, err := s.ExecContext(context.Background(),
		"INSERT INTO messages (sender_id, receiver_id, group_id, content, media_path, timestamp, encrypted) VALUES (?, ?, ?, ?, ?, ?, ?)",
		msg.SenderID, msg.ReceiverID, msg.GroupID, msg.Content, msg.MediaPath, msg.Timestamp.Unix(), encryptedInt)
	if err != nil {
		return fmt.Errorf("datastore: save message: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

// GetUserMessages returns messages sent or received by the user, newest
// first, capped at limit.
func (s *baseProvider) GetUserMessages(userID int64, limit int) ([]model.Message, error) {
	rows, err := s.QueryContext(context.Background(),
		"SELECT id, sender_id, receiver_id, group_id, content, media_path, timestamp, encrypted FROM messages WHERE receiver_id = ? OR sender_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?",
		userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("datastore: list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var ts int64
		var encryptedInt int
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.GroupID, &m.Content, &m.MediaPath, &ts, &encryptedInt); err != nil {
			return nil, fmt.Errorf("datastore: scan message: %w", err)
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		m.Encrypted = encryptedInt != 0
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ---- Locations ----

// UpdateUserLocation stores a consented location fix. Consent is recorded as
// part of the same update; the caller has already validated it was explicit.
func (s *baseProvider) UpdateUserLocation(userID int64, lat, lng float64, durationMinutes int) error {
	_, err := s.ExecContext(context.Background(),
		"UPDATE users SET latitude = ?, longitude = ?, location_updated = ?, location_duration = ?, location_consent = 1 WHERE id = ?",
		lat, lng, time.Now().UTC().Unix(), durationMinutes, userID)
	if err != nil {
		return fmt.Errorf("datastore: update location: %w", err)
	}
	return nil
}

// GetUserLocations returns users whose consent window is still open at now.
// Callers re-apply the visibility check; this filter guards the common path.
func (s *baseProvider) GetUserLocations(now time.Time) ([]model.User, error) {
	rows, err := s.QueryContext(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE location_consent = 1 AND (location_updated + location_duration * 60) > ?",
		now.Unix())
	if err != nil {
		return nil, fmt.Errorf("datastore: list locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("datastore: scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
