package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletapp/wallet-service/internal/apperr"
	"github.com/walletapp/wallet-service/internal/auth"
	"github.com/walletapp/wallet-service/internal/models"
	"github.com/walletapp/wallet-service/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres repository
type memStore struct {
	mu    sync.Mutex
	users []models.User
	txs   []models.Transaction

	// lastLimit records the limit passed to ListTransactions
	lastLimit int
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.CreatedAt = time.Now()
	m.users = append(m.users, *user)
	return nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.User(nil), m.users...), nil
}

func (m *memStore) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.CreatedAt = time.Now()
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memStore) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()

	all, err := m.ListAllTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memStore) ListAllTransactions(_ context.Context, userID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []models.Transaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			owned = append(owned, tx)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].Date != owned[j].Date {
			return owned[i].Date > owned[j].Date
		}
		return false
	})
	return owned, nil
}

func (m *memStore) DeleteTransaction(_ context.Context, userID, txID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, tx := range m.txs {
		if tx.ID == txID && tx.UserID == userID {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) DeleteAllTransactions(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.Transaction
	var deleted int64
	for _, tx := range m.txs {
		if tx.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, tx)
	}
	m.txs = kept
	return deleted, nil
}

func (m *memStore) SumByType(_ context.Context, userID string) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var income, expense float64
	for _, tx := range m.txs {
		if tx.UserID != userID {
			continue
		}
		switch tx.Type {
		case models.TypeIncome:
			income += tx.Amount
		case models.TypeExpense:
			expense += tx.Amount
		}
	}
	return income, expense, nil
}

// fakeSender records sent reports
type fakeSender struct {
	mu   sync.Mutex
	sent []string // destination addresses
	err  error
}

func (f *fakeSender) SendReport(to, _ string, _ models.Summary, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func newTestService(t *testing.T) (*Service, *memStore, *fakeSender) {
	t.Helper()
	store := &memStore{}
	sender := &fakeSender{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewService(store, store, tokens, sender, logger), store, sender
}

func mustRegister(t *testing.T, svc *Service, email string) *models.User {
	t.Helper()
	user, token, err := svc.Register(context.Background(), email, "hunter2", "Test User")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return user
}

func mustCreateTx(t *testing.T, svc *Service, userID, txType string, amount float64, date string) *models.Transaction {
	t.Helper()
	tx, err := svc.CreateTransaction(context.Background(), userID, models.TransactionInput{
		Type:     txType,
		Amount:   amount,
		Category: "general",
		Date:     date,
	})
	require.NoError(t, err)
	return tx
}

func TestRegister(t *testing.T) {
	svc, store, _ := newTestService(t)

	user, token, err := svc.Register(context.Background(), "a@example.com", "hunter2", "Alice")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "a@example.com", user.Email)
	assert.NotEqual(t, "hunter2", user.PasswordHash)
	assert.NotEmpty(t, token)
	assert.Len(t, store.users, 1)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, store, _ := newTestService(t)
	mustRegister(t, svc, "a@example.com")

	_, _, err := svc.Register(context.Background(), "a@example.com", "other", "Other")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Len(t, store.users, 1, "failed registration must not mutate stored data")
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
		userName string
	}{
		{"bad email", "not-an-email", "hunter2", "Alice"},
		{"empty password", "a@example.com", "", "Alice"},
		{"empty name", "a@example.com", "hunter2", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tt.email, tt.password, tt.userName)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	registered := mustRegister(t, svc, "a@example.com")

	user, token, err := svc.Login(context.Background(), "a@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)
}

func TestLoginGenericError(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustRegister(t, svc, "a@example.com")

	// Unknown email and wrong password must be indistinguishable
	_, _, unknownErr := svc.Login(context.Background(), "nobody@example.com", "hunter2")
	_, _, wrongErr := svc.Login(context.Background(), "a@example.com", "wrong")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(unknownErr))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(wrongErr))
}

func TestCreateTransactionValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustRegister(t, svc, "a@example.com")

	tests := []struct {
		name  string
		input models.TransactionInput
	}{
		{"bad type", models.TransactionInput{Type: "transfer", Amount: 10, Category: "c", Date: "2024-01-01"}},
		{"zero amount", models.TransactionInput{Type: "income", Amount: 0, Category: "c", Date: "2024-01-01"}},
		{"negative amount", models.TransactionInput{Type: "expense", Amount: -5, Category: "c", Date: "2024-01-01"}},
		{"bad date", models.TransactionInput{Type: "income", Amount: 10, Category: "c", Date: "01/02/2024"}},
		{"empty category", models.TransactionInput{Type: "income", Amount: 10, Category: " ", Date: "2024-01-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(context.Background(), user.ID, tt.input)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestListTransactionsSorted(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustRegister(t, svc, "a@example.com")

	mustCreateTx(t, svc, user.ID, models.TypeIncome, 10, "2024-01-15")
	mustCreateTx(t, svc, user.ID, models.TypeExpense, 20, "2024-03-01")
	mustCreateTx(t, svc, user.ID, models.TypeIncome, 30, "2024-02-10")

	txs, err := svc.ListTransactions(context.Background(), user.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "2024-03-01", txs[0].Date)
	assert.Equal(t, "2024-02-10", txs[1].Date)
	assert.Equal(t, "2024-01-15", txs[2].Date)
}

func TestListTransactionsPageBounds(t *testing.T) {
	svc, store, _ := newTestService(t)
	user := mustRegister(t, svc, "a@example.com")

	_, err := svc.ListTransactions(context.Background(), user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, store.lastLimit)

	_, err = svc.ListTransactions(context.Background(), user.ID, 9999, 0)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, store.lastLimit)
}

func TestUserIsolation(t *testing.T) {
	svc, _, _ := newTestService(t)
	alice := mustRegister(t, svc, "alice@example.com")
	bob := mustRegister(t, svc, "bob@example.com")

	bobTx := mustCreateTx(t, svc, bob.ID, models.TypeIncome, 100, "2024-01-01")

	// Alice cannot delete Bob's transaction
	err := svc.DeleteTransaction(context.Background(), alice.ID, bobTx.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// Alice never sees Bob's rows
	txs, err := svc.ListTransactions(context.Background(), alice.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)

	// Bob's data is intact
	txs, err = svc.ListTransactions(context.Background(), bob.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestDeleteRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustRegister(t, svc, "a@example.com")
	mustCreateTx(t, svc, user.ID, models.TypeIncome, 10, "2024-01-01")

	before, err := svc.ListTransactions(context.Background(), user.ID, 0, 0)
	require.NoError(t, err)

	tx := mustCreateTx(t, svc, user.ID, models.TypeExpense, 5, "2024-02-01")
	require.NoError(t, svc.DeleteTransaction(context.Background(), user.ID, tx.ID))

	after, err := svc.ListTransactions(context.Background(), user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestResetTransactions(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustRegister(t, svc, "a@example.com")
	mustCreateTx(t, svc, user.ID, models.TypeIncome, 10, "2024-01-01")
	mustCreateTx(t, svc, user.ID, models.TypeExpense, 5, "2024-01-02")

	count, err := svc.ResetTransactions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Resetting an empty set succeeds with zero
	count, err = svc.ResetTransactions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSummary(t *testing.T) {
	svc, _, _ := newTestService(t)
	user := mustRegister(t, svc, "a@example.com")

	// Empty set
	summary, err := svc.Summary(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Summary{}, summary)

	mustCreateTx(t, svc, user.ID, models.TypeIncome, 100, "2024-01-01")
	mustCreateTx(t, svc, user.ID, models.TypeExpense, 40, "2024-01-02")

	summary, err = svc.Summary(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Summary{TotalIncome: 100, TotalExpense: 40, Balance: 60}, summary)
}

func TestEmailReport(t *testing.T) {
	svc, _, sender := newTestService(t)
	user := mustRegister(t, svc, "a@example.com")
	mustCreateTx(t, svc, user.ID, models.TypeIncome, 100, "2024-01-01")

	require.NoError(t, svc.EmailReport(context.Background(), user.ID, "dest@example.com"))
	assert.Equal(t, []string{"dest@example.com"}, sender.sent)
}

func TestEmailReportErrors(t *testing.T) {
	svc, _, sender := newTestService(t)
	user := mustRegister(t, svc, "a@example.com")

	err := svc.EmailReport(context.Background(), user.ID, "not-an-email")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = svc.EmailReport(context.Background(), "missing-user", "dest@example.com")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	sender.err = assert.AnError
	err = svc.EmailReport(context.Background(), user.ID, "dest@example.com")
	assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))
}

func TestSendScheduledReports(t *testing.T) {
	svc, _, sender := newTestService(t)
	active := mustRegister(t, svc, "active@example.com")
	mustRegister(t, svc, "idle@example.com")
	mustCreateTx(t, svc, active.ID, models.TypeIncome, 100, "2024-01-01")

	require.NoError(t, svc.SendScheduledReports(context.Background()))

	// Only users with transactions receive a report
	assert.Equal(t, []string{"active@example.com"}, sender.sent)
}
