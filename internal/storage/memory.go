package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/mehedi/hookpulse/internal/models"
)

// MemoryStorage is an in-memory implementation of Storage for tests and
// local development. Aggregate updates run under the store lock, which
// gives them the same exactly-once property the SQLite upsert provides.
type MemoryStorage struct {
	mu            sync.RWMutex
	accounts      map[string]models.Account
	webhooks      map[string]models.Webhook // id -> webhook
	executions    map[string][]models.Execution
	metrics       map[string]models.Metrics
	notifications map[string][]models.Notification // accountID -> notifications
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		accounts:      make(map[string]models.Account),
		webhooks:      make(map[string]models.Webhook),
		executions:    make(map[string][]models.Execution),
		metrics:       make(map[string]models.Metrics),
		notifications: make(map[string][]models.Notification),
	}
}

func (s *MemoryStorage) Migrate(ctx context.Context) error { return nil }
func (s *MemoryStorage) Close() error                      { return nil }

func metricsKey(accountID, webhookID string) string {
	return accountID + "/" + webhookID
}

// --- Accounts ---

func (s *MemoryStorage) CreateAccount(ctx context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.ID] = *acc
	return nil
}

func (s *MemoryStorage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (s *MemoryStorage) GetAccountByAPIKey(ctx context.Context, apiKey string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.APIKey == apiKey {
			a := acc
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]models.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *MemoryStorage) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStorage) UpdateAccountAPIKey(ctx context.Context, id, newKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.APIKey = newKey
	acc.UpdatedAt = time.Now().UTC()
	s.accounts[id] = acc
	return nil
}

// --- Webhooks ---

func (s *MemoryStorage) CreateWebhook(ctx context.Context, wh *models.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks[wh.ID] = cloneWebhook(*wh)
	return nil
}

func (s *MemoryStorage) GetWebhook(ctx context.Context, accountID, id string) (*models.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wh, ok := s.webhooks[id]
	if !ok || wh.AccountID != accountID {
		return nil, ErrNotFound
	}
	c := cloneWebhook(wh)
	return &c, nil
}

func (s *MemoryStorage) ListWebhooks(ctx context.Context, accountID string) ([]models.Webhook, error) {
	return s.listWebhooks(accountID, false)
}

func (s *MemoryStorage) ListActiveWebhooks(ctx context.Context, accountID string) ([]models.Webhook, error) {
	return s.listWebhooks(accountID, true)
}

func (s *MemoryStorage) listWebhooks(accountID string, activeOnly bool) ([]models.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var webhooks []models.Webhook
	for _, wh := range s.webhooks {
		if wh.AccountID != accountID {
			continue
		}
		if activeOnly && !wh.IsActive() {
			continue
		}
		webhooks = append(webhooks, cloneWebhook(wh))
	}
	sort.Slice(webhooks, func(i, j int) bool {
		return webhooks[i].CreatedAt.After(webhooks[j].CreatedAt)
	})
	return webhooks, nil
}

func (s *MemoryStorage) UpdateWebhook(ctx context.Context, wh *models.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.webhooks[wh.ID]
	if !ok || existing.AccountID != wh.AccountID {
		return ErrNotFound
	}
	updated := cloneWebhook(*wh)
	updated.UpdatedAt = time.Now().UTC()
	s.webhooks[wh.ID] = updated
	return nil
}

func (s *MemoryStorage) DeleteWebhook(ctx context.Context, accountID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wh, ok := s.webhooks[id]; ok && wh.AccountID == accountID {
		delete(s.webhooks, id)
	}
	return nil
}

func (s *MemoryStorage) SetWebhookStatus(ctx context.Context, accountID, id string, status models.WebhookStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wh, ok := s.webhooks[id]
	if !ok || wh.AccountID != accountID {
		return ErrNotFound
	}
	wh.Status = status
	wh.UpdatedAt = time.Now().UTC()
	s.webhooks[id] = wh
	return nil
}

func cloneWebhook(wh models.Webhook) models.Webhook {
	if wh.Headers != nil {
		headers := make(map[string]string, len(wh.Headers))
		for k, v := range wh.Headers {
			headers[k] = v
		}
		wh.Headers = headers
	}
	wh.Body = append(json.RawMessage(nil), wh.Body...)
	return wh
}

// --- Executions ---

func (s *MemoryStorage) AppendExecution(ctx context.Context, exec *models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := metricsKey(exec.AccountID, exec.WebhookID)
	s.executions[key] = append(s.executions[key], *exec)
	return nil
}

func (s *MemoryStorage) UpdateMetrics(ctx context.Context, exec *models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := metricsKey(exec.AccountID, exec.WebhookID)
	m := s.metrics[key]
	m.AverageResponseTime = (m.AverageResponseTime*float64(m.TotalExecutions) + float64(exec.ResponseTimeMs)) / float64(m.TotalExecutions+1)
	m.TotalExecutions++
	if exec.Status == models.ExecutionSuccess {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}
	at := exec.CreatedAt
	m.LastExecuted = &at
	m.LastStatus = exec.Status
	s.metrics[key] = m
	return nil
}

func (s *MemoryStorage) GetMetrics(ctx context.Context, accountID, webhookID string) (*models.Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.metrics[metricsKey(accountID, webhookID)]
	return &m, nil
}

func (s *MemoryStorage) RecentExecutions(ctx context.Context, accountID, webhookID string, limit int) ([]models.Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.executions[metricsKey(accountID, webhookID)]
	execs := append([]models.Execution(nil), all...)
	sort.Slice(execs, func(i, j int) bool {
		if execs[i].CreatedAt.Equal(execs[j].CreatedAt) {
			return execs[i].ID > execs[j].ID
		}
		return execs[i].CreatedAt.After(execs[j].CreatedAt)
	})
	if len(execs) > limit {
		execs = execs[:limit]
	}
	return execs, nil
}

func (s *MemoryStorage) ExecutionsSince(ctx context.Context, accountID, webhookID string, since time.Time) ([]models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var execs []models.Execution
	for _, e := range s.executions[metricsKey(accountID, webhookID)] {
		if !e.CreatedAt.Before(since) {
			execs = append(execs, e)
		}
	}
	sort.Slice(execs, func(i, j int) bool {
		return execs[i].CreatedAt.Before(execs[j].CreatedAt)
	})
	return execs, nil
}

// --- Notifications ---

func (s *MemoryStorage) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.AccountID] = append(s.notifications[n.AccountID], *n)
	return nil
}

func (s *MemoryStorage) ListNotifications(ctx context.Context, accountID string, onlyUnread bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var notifs []models.Notification
	for _, n := range s.notifications[accountID] {
		if onlyUnread && n.Read {
			continue
		}
		notifs = append(notifs, n)
	}
	sort.Slice(notifs, func(i, j int) bool {
		return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
	})
	if len(notifs) > limit {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func (s *MemoryStorage) MarkNotificationsRead(ctx context.Context, accountID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	notifs := s.notifications[accountID]
	for i := range notifs {
		if idSet[notifs[i].ID] {
			notifs[i].Read = true
		}
	}
	return nil
}

func (s *MemoryStorage) CountUnreadNotifications(ctx context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.notifications[accountID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
