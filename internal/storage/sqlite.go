package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mehedi/hookpulse/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			api_key TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS webhooks (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			method TEXT NOT NULL DEFAULT 'POST',
			headers TEXT NOT NULL DEFAULT '{}',
			body TEXT NOT NULL DEFAULT '',
			secret TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			webhook_id TEXT NOT NULL,
			status TEXT NOT NULL,
			attempt INTEGER NOT NULL DEFAULT 0,
			http_status INTEGER NOT NULL DEFAULT 0,
			response_time_ms INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			next_retry_delay_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_metrics (
			account_id TEXT NOT NULL,
			webhook_id TEXT NOT NULL,
			total_executions INTEGER NOT NULL DEFAULT 0,
			success_count INTEGER NOT NULL DEFAULT 0,
			failure_count INTEGER NOT NULL DEFAULT 0,
			avg_response_time REAL NOT NULL DEFAULT 0,
			last_executed DATETIME,
			last_status TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (account_id, webhook_id)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			read INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_api_key ON accounts(api_key)`,
		`CREATE INDEX IF NOT EXISTS idx_webhooks_account ON webhooks(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_webhook ON executions(account_id, webhook_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_account ON notifications(account_id, created_at)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- Accounts ---

func (s *SQLiteStorage) CreateAccount(ctx context.Context, acc *models.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, api_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		acc.ID, acc.Name, acc.APIKey, acc.CreatedAt, acc.UpdatedAt,
	)
	return err
}

func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var acc models.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, api_key, created_at, updated_at FROM accounts WHERE id = ?`, id,
	).Scan(&acc.ID, &acc.Name, &acc.APIKey, &acc.CreatedAt, &acc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &acc, err
}

func (s *SQLiteStorage) GetAccountByAPIKey(ctx context.Context, apiKey string) (*models.Account, error) {
	var acc models.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, api_key, created_at, updated_at FROM accounts WHERE api_key = ?`, apiKey,
	).Scan(&acc.ID, &acc.Name, &acc.APIKey, &acc.CreatedAt, &acc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &acc, err
}

func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, api_key, created_at, updated_at FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acc models.Account
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.APIKey, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return err
}

func (s *SQLiteStorage) UpdateAccountAPIKey(ctx context.Context, id, newKey string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET api_key = ?, updated_at = ? WHERE id = ?`,
		newKey, time.Now().UTC(), id,
	)
	return err
}

// --- Webhooks ---

func (s *SQLiteStorage) CreateWebhook(ctx context.Context, wh *models.Webhook) error {
	headers, _ := json.Marshal(wh.Headers)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO webhooks (id, account_id, name, url, method, headers, body, secret, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wh.ID, wh.AccountID, wh.Name, wh.URL, wh.Method, string(headers), string(wh.Body), wh.Secret, wh.Status, wh.CreatedAt, wh.UpdatedAt,
	)
	return err
}

func (s *SQLiteStorage) scanWebhook(row interface{ Scan(...interface{}) error }) (*models.Webhook, error) {
	var wh models.Webhook
	var headers, body string
	err := row.Scan(&wh.ID, &wh.AccountID, &wh.Name, &wh.URL, &wh.Method, &headers, &body, &wh.Secret, &wh.Status, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(headers), &wh.Headers)
	if body != "" {
		wh.Body = json.RawMessage(body)
	}
	return &wh, nil
}

const webhookColumns = `id, account_id, name, url, method, headers, body, secret, status, created_at, updated_at`

func (s *SQLiteStorage) GetWebhook(ctx context.Context, accountID, id string) (*models.Webhook, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE account_id = ? AND id = ?`, accountID, id)
	wh, err := s.scanWebhook(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return wh, err
}

func (s *SQLiteStorage) ListWebhooks(ctx context.Context, accountID string) ([]models.Webhook, error) {
	return s.queryWebhooks(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE account_id = ? ORDER BY created_at DESC`, accountID)
}

func (s *SQLiteStorage) ListActiveWebhooks(ctx context.Context, accountID string) ([]models.Webhook, error) {
	return s.queryWebhooks(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE account_id = ? AND status = 'active' ORDER BY created_at DESC`, accountID)
}

func (s *SQLiteStorage) queryWebhooks(ctx context.Context, query string, args ...interface{}) ([]models.Webhook, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []models.Webhook
	for rows.Next() {
		wh, err := s.scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, *wh)
	}
	return webhooks, rows.Err()
}

func (s *SQLiteStorage) UpdateWebhook(ctx context.Context, wh *models.Webhook) error {
	headers, _ := json.Marshal(wh.Headers)
	_, err := s.db.ExecContext(ctx,
		`UPDATE webhooks SET name = ?, url = ?, method = ?, headers = ?, body = ?, secret = ?, status = ?, updated_at = ?
		 WHERE account_id = ? AND id = ?`,
		wh.Name, wh.URL, wh.Method, string(headers), string(wh.Body), wh.Secret, wh.Status, time.Now().UTC(), wh.AccountID, wh.ID,
	)
	return err
}

func (s *SQLiteStorage) DeleteWebhook(ctx context.Context, accountID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE account_id = ? AND id = ?`, accountID, id)
	return err
}

func (s *SQLiteStorage) SetWebhookStatus(ctx context.Context, accountID, id string, status models.WebhookStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE webhooks SET status = ?, updated_at = ? WHERE account_id = ? AND id = ?`,
		status, time.Now().UTC(), accountID, id,
	)
	return err
}

// --- Executions ---

func (s *SQLiteStorage) AppendExecution(ctx context.Context, exec *models.Execution) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, account_id, webhook_id, status, attempt, http_status, response_time_ms, error_message, next_retry_delay_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.AccountID, exec.WebhookID, exec.Status, exec.Attempt, exec.HTTPStatus, exec.ResponseTimeMs, exec.ErrorMessage, exec.NextRetryDelayMs, exec.CreatedAt,
	)
	return err
}

// UpdateMetrics folds one execution into the aggregate row in a single
// upsert. Every right-hand expression reads the pre-update row, so the
// running mean uses the old total before the counter increments; the
// whole statement is atomic under SQLite's locking.
func (s *SQLiteStorage) UpdateMetrics(ctx context.Context, exec *models.Execution) error {
	success, failure := 0, 0
	if exec.Status == models.ExecutionSuccess {
		success = 1
	} else {
		failure = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO webhook_metrics (account_id, webhook_id, total_executions, success_count, failure_count, avg_response_time, last_executed, last_status)
		 VALUES (?, ?, 1, ?, ?, ?, ?, ?)
		 ON CONFLICT(account_id, webhook_id) DO UPDATE SET
			avg_response_time = (avg_response_time * total_executions + excluded.avg_response_time) / (total_executions + 1),
			total_executions = total_executions + 1,
			success_count = success_count + excluded.success_count,
			failure_count = failure_count + excluded.failure_count,
			last_executed = excluded.last_executed,
			last_status = excluded.last_status`,
		exec.AccountID, exec.WebhookID, success, failure, float64(exec.ResponseTimeMs), exec.CreatedAt, exec.Status,
	)
	return err
}

func (s *SQLiteStorage) GetMetrics(ctx context.Context, accountID, webhookID string) (*models.Metrics, error) {
	var m models.Metrics
	var lastExecuted sql.NullTime
	var lastStatus string
	err := s.db.QueryRowContext(ctx,
		`SELECT total_executions, success_count, failure_count, avg_response_time, last_executed, last_status
		 FROM webhook_metrics WHERE account_id = ? AND webhook_id = ?`,
		accountID, webhookID,
	).Scan(&m.TotalExecutions, &m.SuccessCount, &m.FailureCount, &m.AverageResponseTime, &lastExecuted, &lastStatus)
	if err == sql.ErrNoRows {
		// No executions yet: all counters zero, no last status.
		return &models.Metrics{}, nil
	}
	if err != nil {
		return nil, err
	}
	if lastExecuted.Valid {
		t := lastExecuted.Time
		m.LastExecuted = &t
	}
	m.LastStatus = models.ExecutionStatus(lastStatus)
	return &m, nil
}

func (s *SQLiteStorage) RecentExecutions(ctx context.Context, accountID, webhookID string, limit int) ([]models.Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryExecutions(ctx,
		`SELECT id, account_id, webhook_id, status, attempt, http_status, response_time_ms, error_message, next_retry_delay_ms, created_at
		 FROM executions WHERE account_id = ? AND webhook_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		accountID, webhookID, limit)
}

func (s *SQLiteStorage) ExecutionsSince(ctx context.Context, accountID, webhookID string, since time.Time) ([]models.Execution, error) {
	return s.queryExecutions(ctx,
		`SELECT id, account_id, webhook_id, status, attempt, http_status, response_time_ms, error_message, next_retry_delay_ms, created_at
		 FROM executions WHERE account_id = ? AND webhook_id = ? AND created_at >= ?
		 ORDER BY created_at ASC, id ASC`,
		accountID, webhookID, since)
}

func (s *SQLiteStorage) queryExecutions(ctx context.Context, query string, args ...interface{}) ([]models.Execution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []models.Execution
	for rows.Next() {
		var e models.Execution
		if err := rows.Scan(&e.ID, &e.AccountID, &e.WebhookID, &e.Status, &e.Attempt, &e.HTTPStatus, &e.ResponseTimeMs, &e.ErrorMessage, &e.NextRetryDelayMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// --- Notifications ---

func (s *SQLiteStorage) CreateNotification(ctx context.Context, n *models.Notification) error {
	metadata, _ := json.Marshal(n.Metadata)
	read := 0
	if n.Read {
		read = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, account_id, title, message, severity, category, metadata, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.AccountID, n.Title, n.Message, n.Severity, n.Category, string(metadata), read, n.CreatedAt,
	)
	return err
}

func (s *SQLiteStorage) ListNotifications(ctx context.Context, accountID string, onlyUnread bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, account_id, title, message, severity, category, metadata, read, created_at
		 FROM notifications WHERE account_id = ?`
	if onlyUnread {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []models.Notification
	for rows.Next() {
		var n models.Notification
		var metadata string
		var read int
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Title, &n.Message, &n.Severity, &n.Category, &metadata, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(metadata), &n.Metadata)
		n.Read = read == 1
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

func (s *SQLiteStorage) MarkNotificationsRead(ctx context.Context, accountID string, ids ...string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE notifications SET read = 1 WHERE account_id = ? AND id = ?`, accountID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) CountUnreadNotifications(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE account_id = ? AND read = 0`, accountID).Scan(&count)
	return count, err
}
