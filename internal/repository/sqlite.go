package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/matbactivity/songconstitution/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uid TEXT PRIMARY KEY,
			display_name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS constitutions (
			id TEXT PRIMARY KEY,
			season INTEGER NOT NULL,
			round INTEGER NOT NULL,
			name TEXT NOT NULL,
			is_public BOOLEAN DEFAULT 0,
			owner TEXT NOT NULL,
			users TEXT NOT NULL DEFAULT '[]', -- JSON array of uids
			winner_song_id INTEGER NOT NULL DEFAULT -1,
			winner_user_id TEXT NOT NULL DEFAULT '',
			youtube_playlist_id TEXT NOT NULL DEFAULT '',
			number_of_songs_per_user INTEGER NOT NULL,
			number_max_of_user INTEGER NOT NULL,
			is_locked BOOLEAN DEFAULT 0,
			is_showing_result BOOLEAN DEFAULT 0,
			finished BOOLEAN DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS songs (
			constitution_id TEXT NOT NULL,
			id INTEGER NOT NULL,
			short_title TEXT NOT NULL,
			author TEXT NOT NULL,
			url TEXT NOT NULL,
			platform TEXT NOT NULL,
			patron TEXT NOT NULL,
			PRIMARY KEY (constitution_id, id),
			FOREIGN KEY (constitution_id) REFERENCES constitutions(id)
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id TEXT PRIMARY KEY,
			constitution_id TEXT NOT NULL,
			song_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			score REAL NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (constitution_id) REFERENCES constitutions(id),
			UNIQUE(constitution_id, song_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			constitution_id TEXT NOT NULL UNIQUE,
			season INTEGER NOT NULL,
			round INTEGER NOT NULL,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			youtube_playlist_id TEXT NOT NULL DEFAULT '',
			winner_id TEXT NOT NULL,
			winner_song_url TEXT NOT NULL,
			winner_song_title TEXT NOT NULL,
			winner_song_author TEXT NOT NULL,
			usernames TEXT NOT NULL,
			songs_title TEXT NOT NULL,
			songs_author TEXT NOT NULL,
			songs_url TEXT NOT NULL,
			songs_owner TEXT NOT NULL,
			archived_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_constitution ON votes(constitution_id)`,
		`CREATE INDEX IF NOT EXISTS idx_constitutions_finished ON constitutions(finished)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	// base_url is intentionally not set here - app.go sets it on startup
	defaultSettings := map[string]string{
		"score_min": "0",
		"score_max": "10",
	}

	for key, value := range defaultSettings {
		_, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return err
		}
	}

	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, rolling back on error
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// bumpVersion increments the version of a live constitution if it is still
// at the expected version. extraSet is appended to the SET clause.
func bumpVersion(ctx context.Context, q execer, id string, version int64, extraSet string, extraArgs ...any) error {
	query := `UPDATE constitutions SET version = version + 1`
	if extraSet != "" {
		query += ", " + extraSet
	}
	query += ` WHERE id = ? AND version = ? AND finished = 0`

	args := append(extraArgs, id, version)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return versionMiss(ctx, q, id)
	}
	return nil
}

// versionMiss tells a missing constitution apart from a stale version
func versionMiss(ctx context.Context, q execer, id string) error {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM constitutions WHERE id = ? AND finished = 0`, id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// isConstraintError reports whether err is a sqlite uniqueness violation
func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func marshalStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func unmarshalStrings(data string) []string {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}

// ==================== User Methods ====================

// GetUser returns a user by uid
func (r *Repository) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, `SELECT uid, display_name FROM users WHERE uid = ?`, uid).
		Scan(&user.UID, &user.DisplayName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByDisplayName returns a user by case-insensitive display name
func (r *Repository) GetUserByDisplayName(ctx context.Context, displayName string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, `SELECT uid, display_name FROM users WHERE display_name = ?`, displayName).
		Scan(&user.UID, &user.DisplayName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user
func (r *Repository) CreateUser(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (uid, display_name) VALUES (?, ?)`, user.UID, user.DisplayName)
	if isConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

// ListUsers returns the users with the given uids. Unknown uids are skipped.
func (r *Repository) ListUsers(ctx context.Context, uids []string) ([]models.User, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(uids)), ",")
	args := make([]any, len(uids))
	for i, uid := range uids {
		args[i] = uid
	}

	rows, err := r.db.QueryContext(ctx, `SELECT uid, display_name FROM users WHERE uid IN (`+placeholders+`) ORDER BY display_name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.UID, &user.DisplayName); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ==================== Constitution Methods ====================

const constitutionColumns = `id, season, round, name, is_public, owner, users, winner_song_id, winner_user_id,
	youtube_playlist_id, number_of_songs_per_user, number_max_of_user, is_locked, is_showing_result,
	finished, version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConstitution(row rowScanner) (*models.Constitution, error) {
	var c models.Constitution
	var users string
	err := row.Scan(&c.ID, &c.Season, &c.Round, &c.Name, &c.IsPublic, &c.Owner, &users,
		&c.WinnerSongID, &c.WinnerUserID, &c.YoutubePlaylistID, &c.NumberOfSongsPerUser,
		&c.NumberMaxOfUser, &c.IsLocked, &c.IsShowingResult, &c.Finished, &c.Version, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Users = unmarshalStrings(users)
	return &c, nil
}

// CreateConstitution inserts a constitution and its initial songs at version 1
func (r *Repository) CreateConstitution(ctx context.Context, c *models.Constitution) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Version = 1

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO constitutions (id, season, round, name, is_public, owner, users, winner_song_id,
				winner_user_id, youtube_playlist_id, number_of_songs_per_user, number_max_of_user,
				is_locked, is_showing_result, finished, version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		`, c.ID, c.Season, c.Round, c.Name, c.IsPublic, c.Owner, marshalStrings(c.Users), c.WinnerSongID,
			c.WinnerUserID, c.YoutubePlaylistID, c.NumberOfSongsPerUser, c.NumberMaxOfUser,
			c.IsLocked, c.IsShowingResult, c.Version, c.CreatedAt)
		if isConstraintError(err) {
			return ErrDuplicate
		}
		if err != nil {
			return err
		}
		for _, song := range c.Songs {
			if err := insertSong(ctx, tx, c.ID, song); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetConstitution returns a constitution with its songs. Finished
// tombstones are returned too so callers can see the terminal state.
func (r *Repository) GetConstitution(ctx context.Context, id string) (*models.Constitution, error) {
	c, err := scanConstitution(r.db.QueryRowContext(ctx, `SELECT `+constitutionColumns+` FROM constitutions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	songs, err := r.listSongs(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Songs = songs
	return c, nil
}

// ListConstitutions returns every live constitution, newest first
func (r *Repository) ListConstitutions(ctx context.Context) ([]models.Constitution, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+constitutionColumns+` FROM constitutions WHERE finished = 0 ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constitutions []models.Constitution
	for rows.Next() {
		c, err := scanConstitution(rows)
		if err != nil {
			return nil, err
		}
		constitutions = append(constitutions, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range constitutions {
		songs, err := r.listSongs(ctx, constitutions[i].ID)
		if err != nil {
			return nil, err
		}
		constitutions[i].Songs = songs
	}
	return constitutions, nil
}

// UpdateConstitution applies a partial update if the constitution is still at version
func (r *Repository) UpdateConstitution(ctx context.Context, id string, version int64, update models.ConstitutionUpdate) error {
	var sets []string
	var args []any

	if update.IsLocked != nil {
		sets = append(sets, "is_locked = ?")
		args = append(args, *update.IsLocked)
	}
	if update.IsShowingResult != nil {
		sets = append(sets, "is_showing_result = ?")
		args = append(args, *update.IsShowingResult)
	}
	if update.WinnerSongID != nil {
		sets = append(sets, "winner_song_id = ?")
		args = append(args, *update.WinnerSongID)
	}
	if update.WinnerUserID != nil {
		sets = append(sets, "winner_user_id = ?")
		args = append(args, *update.WinnerUserID)
	}
	if update.YoutubePlaylistID != nil {
		sets = append(sets, "youtube_playlist_id = ?")
		args = append(args, *update.YoutubePlaylistID)
	}
	if update.Users != nil {
		sets = append(sets, "users = ?")
		args = append(args, marshalStrings(update.Users))
	}

	return bumpVersion(ctx, r.db, id, version, strings.Join(sets, ", "), args...)
}

// DeleteConstitution removes a constitution with its votes and songs
func (r *Repository) DeleteConstitution(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return deleteConstitutionTx(ctx, tx, id, false)
	})
}

// deleteConstitutionTx deletes votes, then songs, then the constitution
// record. With onlyFinished the record must be a finished tombstone.
func deleteConstitutionTx(ctx context.Context, tx *sql.Tx, id string, onlyFinished bool) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE constitution_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE constitution_id = ?`, id); err != nil {
		return err
	}

	query := `DELETE FROM constitutions WHERE id = ?`
	if onlyFinished {
		query += ` AND finished = 1`
	}
	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Song Methods ====================

func insertSong(ctx context.Context, q execer, constitutionID string, song models.Song) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO songs (constitution_id, id, short_title, author, url, platform, patron)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, constitutionID, song.ID, song.ShortTitle, song.Author, song.URL, string(song.Platform), song.Patron)
	if isConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *Repository) listSongs(ctx context.Context, constitutionID string) ([]models.Song, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, short_title, author, url, platform, patron
		FROM songs WHERE constitution_id = ? ORDER BY id
	`, constitutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var song models.Song
		var platform string
		if err := rows.Scan(&song.ID, &song.ShortTitle, &song.Author, &song.URL, &platform, &song.Patron); err != nil {
			return nil, err
		}
		song.Platform = models.Platform(platform)
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// AddSong appends a song if the constitution is still at version
func (r *Repository) AddSong(ctx context.Context, constitutionID string, version int64, song models.Song) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := bumpVersion(ctx, tx, constitutionID, version, ""); err != nil {
			return err
		}
		return insertSong(ctx, tx, constitutionID, song)
	})
}

// clearWinner resets the cached winner in the same write as a vote or song change
const clearWinner = "winner_song_id = -1, winner_user_id = ''"

// DeleteSong removes a song and its votes if the constitution is still at version
func (r *Repository) DeleteSong(ctx context.Context, constitutionID string, version int64, songID int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := bumpVersion(ctx, tx, constitutionID, version, clearWinner); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE constitution_id = ? AND id = ?`, constitutionID, songID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM votes WHERE constitution_id = ? AND song_id = ?`, constitutionID, songID)
		return err
	})
}

// ==================== Vote Methods ====================

// ListVotes returns every vote of a constitution
func (r *Repository) ListVotes(ctx context.Context, constitutionID string) ([]models.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, constitution_id, song_id, user_id, score, updated_at
		FROM votes WHERE constitution_id = ? ORDER BY song_id, user_id
	`, constitutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var vote models.Vote
		if err := rows.Scan(&vote.ID, &vote.ConstitutionID, &vote.SongID, &vote.UserID, &vote.Score, &vote.UpdatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}

// CountVotes returns the number of votes of a constitution
func (r *Repository) CountVotes(ctx context.Context, constitutionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE constitution_id = ?`, constitutionID).Scan(&count)
	return count, err
}

// SaveVote saves or replaces the vote of a user on a song. The cached winner
// is cleared since the ranking may have changed.
func (r *Repository) SaveVote(ctx context.Context, constitutionID string, version int64, vote models.Vote) error {
	if vote.UpdatedAt.IsZero() {
		vote.UpdatedAt = time.Now().UTC()
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := bumpVersion(ctx, tx, constitutionID, version, clearWinner); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO votes (id, constitution_id, song_id, user_id, score, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(constitution_id, song_id, user_id) DO UPDATE SET
				score = excluded.score,
				updated_at = excluded.updated_at
		`, vote.ID, constitutionID, vote.SongID, vote.UserID, vote.Score, vote.UpdatedAt)
		return err
	})
}

// ==================== History Methods ====================

const historyColumns = `id, constitution_id, season, round, name, owner_id, youtube_playlist_id, winner_id,
	winner_song_url, winner_song_title, winner_song_author, usernames, songs_title, songs_author,
	songs_url, songs_owner, archived_at`

func scanHistory(row rowScanner) (*models.HistoryRecord, error) {
	var h models.HistoryRecord
	var usernames, titles, authors, urls, owners string
	err := row.Scan(&h.ID, &h.ConstitutionID, &h.Season, &h.Round, &h.Name, &h.OwnerID,
		&h.YoutubePlaylistID, &h.WinnerID, &h.WinnerSongURL, &h.WinnerSongTitle, &h.WinnerSongAuthor,
		&usernames, &titles, &authors, &urls, &owners, &h.ArchivedAt)
	if err != nil {
		return nil, err
	}
	h.Usernames = unmarshalStrings(usernames)
	h.SongsTitle = unmarshalStrings(titles)
	h.SongsAuthor = unmarshalStrings(authors)
	h.SongsURL = unmarshalStrings(urls)
	h.SongsOwner = unmarshalStrings(owners)
	return &h, nil
}

// ListHistory returns archived constitutions, most recent first
func (r *Repository) ListHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM history ORDER BY archived_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *h)
	}
	return records, rows.Err()
}

// GetHistory returns one history record
func (r *Repository) GetHistory(ctx context.Context, id string) (*models.HistoryRecord, error) {
	h, err := scanHistory(r.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM history WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

// ==================== Archive Methods ====================

// ArchiveConstitution writes the history record and removes the live
// documents in a single transaction, so no tombstone is left behind.
func (r *Repository) ArchiveConstitution(ctx context.Context, id string, version int64, record models.HistoryRecord) error {
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := bumpVersion(ctx, tx, id, version, "finished = 1"); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO history (`+historyColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, record.ID, id, record.Season, record.Round, record.Name, record.OwnerID,
			record.YoutubePlaylistID, record.WinnerID, record.WinnerSongURL, record.WinnerSongTitle,
			record.WinnerSongAuthor, marshalStrings(record.Usernames), marshalStrings(record.SongsTitle),
			marshalStrings(record.SongsAuthor), marshalStrings(record.SongsURL),
			marshalStrings(record.SongsOwner), record.ArchivedAt)
		if isConstraintError(err) {
			return ErrDuplicate
		}
		if err != nil {
			return err
		}

		return deleteConstitutionTx(ctx, tx, id, true)
	})
}

// ListPendingCleanups returns the ids of finished constitutions whose live
// documents still exist
func (r *Repository) ListPendingCleanups(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM constitutions WHERE finished = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CleanupConstitution removes the live documents of a finished constitution
func (r *Repository) CleanupConstitution(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return deleteConstitutionTx(ctx, tx, id, true)
	})
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}
