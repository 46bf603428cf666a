package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

// memStore is an in-memory port.Store used by the service tests.
// Getters return copies and Update writes them back, mirroring how rows
// are loaded and saved through the real store.
type memStore struct {
	users        map[int64]*domain.User
	accounts     map[int64]*domain.Account
	categories   map[int64]*domain.Category
	transactions map[int64]*domain.Transaction
	reminders    map[int64]*domain.Reminder
	advices      map[string]*domain.Advice
	ocrTasks     map[uuid.UUID]*domain.OcrTask
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int64]*domain.User),
		accounts:     make(map[int64]*domain.Account),
		categories:   make(map[int64]*domain.Category),
		transactions: make(map[int64]*domain.Transaction),
		reminders:    make(map[int64]*domain.Reminder),
		advices:      make(map[string]*domain.Advice),
		ocrTasks:     make(map[uuid.UUID]*domain.OcrTask),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(id int64) *domain.User {
	u := &domain.User{ID: id, Email: "user@example.com"}
	s.users[id] = u
	if id > s.nextID {
		s.nextID = id
	}
	return u
}

func (s *memStore) addAccount(id, userID int64, balance string) *domain.Account {
	a := &domain.Account{
		ID:             id,
		UserID:         userID,
		Name:           "acc",
		AccountType:    domain.AccountCash,
		Currency:       domain.CurrencyUSD,
		Balance:        decimal.RequireFromString(balance),
		IsActive:       true,
		IncludeInTotal: true,
	}
	s.accounts[id] = a
	if id > s.nextID {
		s.nextID = id
	}
	return a
}

func (s *memStore) addCategory(id int64, userID *int64, name string) *domain.Category {
	c := &domain.Category{
		ID:           id,
		UserID:       userID,
		Name:         name,
		CategoryType: domain.CategoryBoth,
		IsDefault:    userID == nil,
	}
	s.categories[id] = c
	if id > s.nextID {
		s.nextID = id
	}
	return c
}

func (s *memStore) Users() port.UserStore               { return (*memUsers)(s) }
func (s *memStore) Accounts() port.AccountStore         { return (*memAccounts)(s) }
func (s *memStore) Categories() port.CategoryStore      { return (*memCategories)(s) }
func (s *memStore) Transactions() port.TransactionStore { return (*memTransactions)(s) }
func (s *memStore) Reminders() port.ReminderStore       { return (*memReminders)(s) }
func (s *memStore) Advices() port.AdviceStore           { return (*memAdvices)(s) }
func (s *memStore) OcrTasks() port.OcrTaskStore         { return (*memOcrTasks)(s) }

func (s *memStore) Transact(ctx context.Context, fn func(port.Store) error) error {
	return fn(s)
}

func (s *memStore) Ping(ctx context.Context) error { return nil }

// --- users ---

type memUsers memStore

func (s *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (s *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memUsers) GetByProvider(_ context.Context, provider, providerID string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Provider == provider && u.ProviderID == providerID {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memUsers) Create(_ context.Context, u *domain.User) error {
	u.ID = (*memStore)(s).id()
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *memUsers) Update(_ context.Context, u *domain.User) error {
	c := *u
	s.users[u.ID] = &c
	return nil
}

// --- accounts ---

type memAccounts memStore

func (s *memAccounts) ListByUser(_ context.Context, userID int64) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memAccounts) GetByIDAndUser(_ context.Context, id, userID int64) (*domain.Account, error) {
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (s *memAccounts) GetForUpdate(ctx context.Context, id, userID int64) (*domain.Account, error) {
	return s.GetByIDAndUser(ctx, id, userID)
}

func (s *memAccounts) Create(_ context.Context, a *domain.Account) error {
	a.ID = (*memStore)(s).id()
	c := *a
	s.accounts[a.ID] = &c
	return nil
}

func (s *memAccounts) Update(_ context.Context, a *domain.Account) error {
	c := *a
	s.accounts[a.ID] = &c
	return nil
}

func (s *memAccounts) Delete(_ context.Context, a *domain.Account) error {
	delete(s.accounts, a.ID)
	return nil
}

// --- categories ---

type memCategories memStore

func (s *memCategories) ListVisible(_ context.Context, userID int64) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range s.categories {
		if c.UserID == nil || *c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memCategories) ListByUser(_ context.Context, userID int64) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range s.categories {
		if c.UserID != nil && *c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memCategories) ListDefaults(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range s.categories {
		if c.UserID == nil {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memCategories) GetVisible(_ context.Context, id, userID int64) (*domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, nil
	}
	if c.UserID != nil && *c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memCategories) GetOwned(_ context.Context, id, userID int64) (*domain.Category, error) {
	c, ok := s.categories[id]
	if !ok || c.UserID == nil || *c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memCategories) Create(_ context.Context, c *domain.Category) error {
	c.ID = (*memStore)(s).id()
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *memCategories) Update(_ context.Context, c *domain.Category) error {
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *memCategories) Delete(_ context.Context, c *domain.Category) error {
	delete(s.categories, c.ID)
	return nil
}

// --- transactions ---

type memTransactions memStore

func (s *memTransactions) clone(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.CategoryID != nil {
		if cat, ok := s.categories[*t.CategoryID]; ok {
			cp := *cat
			c.Category = &cp
		}
	}
	return &c
}

func (s *memTransactions) ListByUser(_ context.Context, userID int64) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, *s.clone(t))
		}
	}
	sortTransactions(out)
	return out, nil
}

func (s *memTransactions) GetByIDAndUser(_ context.Context, id, userID int64) (*domain.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	return s.clone(t), nil
}

func (s *memTransactions) Filter(_ context.Context, userID int64, f domain.TransactionFilter) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if f.Type != nil && t.Type != *f.Type {
			continue
		}
		if f.AccountID != nil && t.AccountID != *f.AccountID &&
			(t.TransferAccountID == nil || *t.TransferAccountID != *f.AccountID) {
			continue
		}
		if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
			continue
		}
		if f.DateFrom != nil && t.Date.Before(f.DateFrom.Time) {
			continue
		}
		if f.DateTo != nil && t.Date.After(f.DateTo.Time) {
			continue
		}
		out = append(out, *s.clone(t))
	}
	sortTransactions(out)
	return out, nil
}

func (s *memTransactions) Create(_ context.Context, t *domain.Transaction) error {
	t.ID = (*memStore)(s).id()
	t.CreatedAt = time.Now()
	c := *t
	c.Category = nil
	s.transactions[t.ID] = &c
	return nil
}

func (s *memTransactions) Update(_ context.Context, t *domain.Transaction) error {
	c := *t
	c.Category = nil
	s.transactions[t.ID] = &c
	return nil
}

func (s *memTransactions) Delete(_ context.Context, t *domain.Transaction) error {
	delete(s.transactions, t.ID)
	return nil
}

func sortTransactions(txs []domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

// --- reminders ---

type memReminders memStore

func (s *memReminders) ListByUser(_ context.Context, userID int64) ([]domain.Reminder, error) {
	var out []domain.Reminder
	for _, r := range s.reminders {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memReminders) GetByIDAndUser(_ context.Context, id, userID int64) (*domain.Reminder, error) {
	r, ok := s.reminders[id]
	if !ok || r.UserID != userID {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (s *memReminders) Create(_ context.Context, r *domain.Reminder) error {
	r.ID = (*memStore)(s).id()
	c := *r
	s.reminders[r.ID] = &c
	return nil
}

func (s *memReminders) Update(_ context.Context, r *domain.Reminder) error {
	c := *r
	s.reminders[r.ID] = &c
	return nil
}

func (s *memReminders) Delete(_ context.Context, r *domain.Reminder) error {
	delete(s.reminders, r.ID)
	return nil
}

// --- advices ---

type memAdvices memStore

func (s *memAdvices) Create(_ context.Context, a *domain.Advice) error {
	a.ID = (*memStore)(s).id()
	a.CreatedAt = time.Now()
	c := *a
	c.Items = append([]domain.AdviceItem(nil), a.Items...)
	s.advices[a.TaskID] = &c
	return nil
}

func (s *memAdvices) GetByTaskID(_ context.Context, taskID string) (*domain.Advice, error) {
	a, ok := s.advices[taskID]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (s *memAdvices) ListRecent(_ context.Context, userID int64, since time.Time) ([]domain.Advice, error) {
	var out []domain.Advice
	for _, a := range s.advices {
		if a.UserID != userID || !a.CreatedAt.After(since) {
			continue
		}
		c := *a
		c.Items = append([]domain.AdviceItem(nil), a.Items...)
		sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].ItemOrder < c.Items[j].ItemOrder })
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- ocr tasks ---

type memOcrTasks memStore

func (s *memOcrTasks) Create(_ context.Context, t *domain.OcrTask) error {
	c := *t
	s.ocrTasks[t.TaskID] = &c
	return nil
}

func (s *memOcrTasks) Get(_ context.Context, id uuid.UUID) (*domain.OcrTask, error) {
	t, ok := s.ocrTasks[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *memOcrTasks) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.ocrTasks, id)
	return nil
}

// --- publisher ---

type publishedMessage struct {
	queue string
	body  any
}

type mockPublisher struct {
	messages []publishedMessage
	err      error
}

func (p *mockPublisher) Publish(_ context.Context, queue string, body any) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{queue: queue, body: body})
	return nil
}

// --- shared fixtures ---

func testLedger(store port.Store) *LedgerService {
	return NewLedgerService(store, observability.NewMetrics(), zap.NewNop())
}

func date(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }
