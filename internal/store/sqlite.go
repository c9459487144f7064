package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository. Pass ":memory:" for an
// ephemeral database (tests).
func NewSQLite(dbPath string) (Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		// WAL mode for better concurrency.
		dsn = dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		// One shared connection, otherwise each conn sees its own empty db.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER NOT NULL UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS balances (
		user_id INTEGER PRIMARY KEY REFERENCES users(id),
		demo_used INTEGER NOT NULL DEFAULT 0,
		credit_balance INTEGER NOT NULL DEFAULT 0 CHECK (credit_balance >= 0),
		total_purchased INTEGER NOT NULL DEFAULT 0,
		total_used INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		role TEXT NOT NULL,
		experience TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		current_question INTEGER NOT NULL DEFAULT 1,
		conversation_json TEXT NOT NULL DEFAULT '[]',
		analyses_json TEXT NOT NULL DEFAULT '[]',
		scores_json TEXT,
		report TEXT,
		started_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON sessions(user_id, status);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		question_num INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		answer_text TEXT NOT NULL,
		analysis_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_answers_session ON answers(session_id);

	CREATE TABLE IF NOT EXISTS reminders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		scheduled_at INTEGER NOT NULL,
		sent INTEGER NOT NULL DEFAULT 0,
		sent_at INTEGER,
		cancelled INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(scheduled_at) WHERE sent = 0 AND cancelled = 0;
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// ==================== USERS ====================

// UpsertUser creates or refreshes a user record and fills in user.ID.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO users (telegram_id, username, first_name, last_name, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(telegram_id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name,
		last_name = excluded.last_name`

	if _, err := s.db.ExecContext(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName, user.CreatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE telegram_id = ?`, user.TelegramID)
	if err := row.Scan(&user.ID); err != nil {
		return fmt.Errorf("read user id: %w", err)
	}
	return nil
}

// GetUserByTelegramID returns nil when the user is unknown.
func (s *SQLiteStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, username, first_name, last_name, created_at
		FROM users WHERE telegram_id = ?`, telegramID)

	var u domain.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

// GetUserByID returns nil when no such user exists.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, username, first_name, last_name, created_at
		FROM users WHERE id = ?`, id)

	var u domain.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

// ==================== BALANCES ====================

// GetOrCreateBalance lazily creates the balance row on first access.
func (s *SQLiteStore) GetOrCreateBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (user_id, updated_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING`, userID, time.Now().Unix(),
	); err != nil {
		return nil, fmt.Errorf("ensure balance row: %w", err)
	}
	return s.getBalance(ctx, userID)
}

func (s *SQLiteStore) getBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, demo_used, credit_balance, total_purchased, total_used, updated_at
		FROM balances WHERE user_id = ?`, userID)

	var b domain.Balance
	var updatedAt int64
	if err := row.Scan(&b.UserID, &b.DemoUsed, &b.CreditBalance, &b.TotalPurchased, &b.TotalUsed, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan balance row: %w", err)
	}
	b.UpdatedAt = time.Unix(updatedAt, 0)
	return &b, nil
}

// AddCredits is the single write path that increases the credit balance,
// invoked for purchases and promo redemptions alike.
func (s *SQLiteStore) AddCredits(ctx context.Context, userID int64, n int) (*domain.Balance, error) {
	if n <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", n)
	}
	if _, err := s.GetOrCreateBalance(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE balances
		SET credit_balance = credit_balance + ?,
		    total_purchased = total_purchased + ?,
		    updated_at = ?
		WHERE user_id = ?`, n, n, time.Now().Unix(), userID,
	); err != nil {
		return nil, fmt.Errorf("add credits: %w", err)
	}
	return s.getBalance(ctx, userID)
}

// consumeQuota performs the atomic conditional decrement inside tx. Returns
// ErrNoQuota when the balance cannot cover the requested mode.
func consumeQuota(ctx context.Context, tx *sql.Tx, userID int64, mode domain.SessionMode) error {
	now := time.Now().Unix()
	var res sql.Result
	var err error
	switch mode {
	case domain.ModeDemo:
		res, err = tx.ExecContext(ctx, `
			UPDATE balances
			SET demo_used = 1, total_used = total_used + 1, updated_at = ?
			WHERE user_id = ? AND demo_used = 0`, now, userID)
	case domain.ModeFull:
		res, err = tx.ExecContext(ctx, `
			UPDATE balances
			SET credit_balance = credit_balance - 1, total_used = total_used + 1, updated_at = ?
			WHERE user_id = ? AND credit_balance > 0`, now, userID)
	default:
		return fmt.Errorf("unknown session mode: %s", mode)
	}
	if err != nil {
		return fmt.Errorf("consume quota: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNoQuota
	}
	return nil
}

// ==================== SESSIONS ====================

// CreateSessionConsuming creates the session row and consumes the quota for
// its mode in one transaction. If the consume fails the session is never
// created; if another in_progress session exists nothing is consumed.
func (s *SQLiteStore) CreateSessionConsuming(ctx context.Context, session *domain.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Ensure the balance row exists before the conditional update.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, updated_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING`, session.UserID, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("ensure balance row: %w", err)
	}

	var existing int64
	row := tx.QueryRowContext(ctx, `
		SELECT COUNT(id) FROM sessions WHERE user_id = ? AND status = 'in_progress'`, session.UserID)
	if err := row.Scan(&existing); err != nil {
		return fmt.Errorf("check active session: %w", err)
	}
	if existing > 0 {
		return ErrActiveSessionExists
	}

	if err := consumeQuota(ctx, tx, session.UserID, session.Mode); err != nil {
		return err
	}

	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	session.Status = domain.StatusInProgress
	session.CurrentQuestion = 1

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (user_id, role, experience, mode, status, current_question, started_at)
		VALUES (?, ?, ?, ?, 'in_progress', 1, ?)`,
		session.UserID, session.Role, session.Experience, session.Mode, session.StartedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("session insert id: %w", err)
	}
	session.ID = id

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session create: %w", err)
	}
	return nil
}

const sessionColumns = `id, user_id, role, experience, mode, status, current_question,
	conversation_json, analyses_json, scores_json, report, started_at, completed_at`

func scanSession(row interface{ Scan(...any) error }) (*domain.Session, error) {
	var sess domain.Session
	var convJSON, analysesJSON string
	var scoresJSON, report sql.NullString
	var startedAt int64
	var completedAt sql.NullInt64

	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.Role, &sess.Experience, &sess.Mode,
		&sess.Status, &sess.CurrentQuestion,
		&convJSON, &analysesJSON, &scoresJSON, &report,
		&startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(convJSON), &sess.Conversation); err != nil {
		return nil, fmt.Errorf("decode conversation history: %w", err)
	}
	if err := json.Unmarshal([]byte(analysesJSON), &sess.Analyses); err != nil {
		return nil, fmt.Errorf("decode analysis history: %w", err)
	}
	if scoresJSON.Valid {
		var cal analysis.Calibration
		if err := json.Unmarshal([]byte(scoresJSON.String), &cal); err != nil {
			return nil, fmt.Errorf("decode scores: %w", err)
		}
		sess.Scores = &cal
	}
	sess.Report = report.String
	sess.StartedAt = time.Unix(startedAt, 0)
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		sess.CompletedAt = &t
	}
	return &sess, nil
}

// GetSession returns nil when the session does not exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return sess, nil
}

// ActiveSession returns the user's in_progress session, nil when none.
func (s *SQLiteStore) ActiveSession(ctx context.Context, userID int64) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = ? AND status = 'in_progress'
		 ORDER BY started_at DESC LIMIT 1`, userID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return sess, nil
}

// UpdateProgress advances the session to toQuestion, conditional on the
// persisted state still being at fromQuestion. A mismatch means a
// concurrent confirm already advanced the session: ErrStaleTransition.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, sessionID int64, fromQuestion, toQuestion int, conv []domain.QAPair, analyses []analysis.Analysis) error {
	convJSON, analysesJSON, err := encodeHistories(conv, analyses)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET current_question = ?, conversation_json = ?, analyses_json = ?
		WHERE id = ? AND status = 'in_progress' AND current_question = ?`,
		toQuestion, convJSON, analysesJSON, sessionID, fromQuestion)
	if err != nil {
		return fmt.Errorf("update session progress: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrStaleTransition
	}
	return nil
}

// CompleteSession sets final scores, report and completed status in one
// write, conditional on the session still being in_progress at
// fromQuestion.
func (s *SQLiteStore) CompleteSession(ctx context.Context, sessionID int64, fromQuestion int, scores *analysis.Calibration, report string, conv []domain.QAPair, analyses []analysis.Analysis) error {
	convJSON, analysesJSON, err := encodeHistories(conv, analyses)
	if err != nil {
		return err
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = 'completed', scores_json = ?, report = ?,
		    conversation_json = ?, analyses_json = ?, completed_at = ?
		WHERE id = ? AND status = 'in_progress' AND current_question = ?`,
		string(scoresJSON), report, convJSON, analysesJSON, time.Now().Unix(),
		sessionID, fromQuestion)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrStaleTransition
	}
	return nil
}

// FinishSession moves an in_progress session to abandoned or cancelled.
func (s *SQLiteStore) FinishSession(ctx context.Context, sessionID int64, status domain.SessionStatus) error {
	if !status.Terminal() || status == domain.StatusCompleted {
		return fmt.Errorf("invalid finish status: %s", status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, completed_at = ?
		WHERE id = ? AND status = 'in_progress'`,
		status, time.Now().Unix(), sessionID)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrStaleTransition
	}
	return nil
}

// HasRecentCompletedSession reports whether the user completed a diagnostic
// at or after the given time. Used to suppress stale nudges.
func (s *SQLiteStore) HasRecentCompletedSession(ctx context.Context, userID int64, since time.Time) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(id) FROM sessions
		WHERE user_id = ? AND status = 'completed' AND completed_at >= ?`,
		userID, since.Unix())
	var n int64
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("check recent completed session: %w", err)
	}
	return n > 0, nil
}

func encodeHistories(conv []domain.QAPair, analyses []analysis.Analysis) (string, string, error) {
	if conv == nil {
		conv = []domain.QAPair{}
	}
	if analyses == nil {
		analyses = []analysis.Analysis{}
	}
	convJSON, err := json.Marshal(conv)
	if err != nil {
		return "", "", fmt.Errorf("encode conversation history: %w", err)
	}
	analysesJSON, err := json.Marshal(analyses)
	if err != nil {
		return "", "", fmt.Errorf("encode analysis history: %w", err)
	}
	return string(convJSON), string(analysesJSON), nil
}

// ==================== ANSWERS ====================

// InsertAnswer appends one answer record. Answers are never updated.
func (s *SQLiteStore) InsertAnswer(ctx context.Context, answer *domain.Answer) error {
	analysisJSON, err := json.Marshal(answer.Analysis)
	if err != nil {
		return fmt.Errorf("encode answer analysis: %w", err)
	}
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (session_id, question_num, question_text, answer_text, analysis_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		answer.SessionID, answer.QuestionNum, answer.QuestionText, answer.AnswerText,
		string(analysisJSON), answer.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	answer.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("answer insert id: %w", err)
	}
	return nil
}

// SessionAnswers returns all answers of a session ordered by question.
func (s *SQLiteStore) SessionAnswers(ctx context.Context, sessionID int64) ([]*domain.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, question_num, question_text, answer_text, analysis_json, created_at
		FROM answers WHERE session_id = ? ORDER BY question_num`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Answer
	for rows.Next() {
		var a domain.Answer
		var analysisJSON string
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionNum, &a.QuestionText, &a.AnswerText, &analysisJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan answer row: %w", err)
		}
		if err := json.Unmarshal([]byte(analysisJSON), &a.Analysis); err != nil {
			return nil, fmt.Errorf("decode answer analysis: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

// ==================== REMINDERS ====================

// ArmReminder cancels any active reminder for the session and inserts a new
// one in a single transaction, keeping at most one active per session.
func (s *SQLiteStore) ArmReminder(ctx context.Context, userID, sessionID int64, at time.Time) (*domain.Reminder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE reminders SET cancelled = 1
		WHERE session_id = ? AND sent = 0 AND cancelled = 0`, sessionID,
	); err != nil {
		return nil, fmt.Errorf("cancel previous reminders: %w", err)
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO reminders (user_id, session_id, scheduled_at, created_at)
		VALUES (?, ?, ?, ?)`, userID, sessionID, at.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reminder insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reminder arm: %w", err)
	}
	return &domain.Reminder{
		ID:          id,
		UserID:      userID,
		SessionID:   sessionID,
		ScheduledAt: at,
		CreatedAt:   now,
	}, nil
}

// CancelReminders marks every active reminder for the session cancelled.
func (s *SQLiteStore) CancelReminders(ctx context.Context, sessionID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET cancelled = 1
		WHERE session_id = ? AND sent = 0 AND cancelled = 0`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("cancel reminders: %w", err)
	}
	return res.RowsAffected()
}

// DueReminders returns active reminders due at or before now, oldest first.
func (s *SQLiteStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, scheduled_at, sent, sent_at, cancelled, created_at
		FROM reminders
		WHERE sent = 0 AND cancelled = 0 AND scheduled_at <= ?
		ORDER BY scheduled_at LIMIT ?`, now.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Reminder
	for rows.Next() {
		var r domain.Reminder
		var scheduledAt, createdAt int64
		var sentAt sql.NullInt64
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &scheduledAt, &r.Sent, &sentAt, &r.Cancelled, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reminder row: %w", err)
		}
		r.ScheduledAt = time.Unix(scheduledAt, 0)
		r.CreatedAt = time.Unix(createdAt, 0)
		if sentAt.Valid {
			t := time.Unix(sentAt.Int64, 0)
			r.SentAt = &t
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}
	return out, nil
}

// MarkReminderSent is idempotent and one-way.
func (s *SQLiteStore) MarkReminderSent(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET sent = 1, sent_at = ? WHERE id = ? AND sent = 0`,
		time.Now().Unix(), id,
	); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}
