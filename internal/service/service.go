// Package service handles business logic: registration, login and all
// transaction operations scoped to the authenticated user.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/walletapp/wallet-service/internal/apperr"
	"github.com/walletapp/wallet-service/internal/auth"
	"github.com/walletapp/wallet-service/internal/models"
	"github.com/walletapp/wallet-service/internal/report"
	"github.com/walletapp/wallet-service/internal/repository"
)

// storeTimeout bounds every call to the backing store
const storeTimeout = 5 * time.Second

// Pagination bounds for transaction listing
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// errBadCredentials is the single outward error for login failures.
// Unknown email and wrong password are indistinguishable to the caller.
var errBadCredentials = apperr.Unauthorized("invalid credentials")

// UserRepository persists user records
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// TransactionRepository persists transaction records keyed by owner
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	ListAllTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, txID string) (int64, error)
	DeleteAllTransactions(ctx context.Context, userID string) (int64, error)
	SumByType(ctx context.Context, userID string) (income, expense float64, err error)
}

// ReportSender delivers an emailed report with the workbook attached
type ReportSender interface {
	SendReport(to, name string, summary models.Summary, workbook []byte) error
}

// Service handles business logic
type Service struct {
	users  UserRepository
	txs    TransactionRepository
	tokens *auth.TokenManager
	sender ReportSender
	log    *logrus.Logger
}

// NewService initializes a new service
func NewService(users UserRepository, txs TransactionRepository, tokens *auth.TokenManager, sender ReportSender, log *logrus.Logger) *Service {
	return &Service{users: users, txs: txs, tokens: tokens, sender: sender, log: log}
}

// Register creates a new user with a hashed password and issues a
// session token bound to the new id. Fails with a conflict when the
// email is already registered.
func (s *Service) Register(ctx context.Context, email, password, name string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", apperr.Validation("invalid email address")
	}
	if password == "" {
		return nil, "", apperr.Validation("password is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", apperr.Validation("name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	existing, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, "", apperr.Dependency("failed to check email", err)
	}
	if existing != nil {
		return nil, "", apperr.Conflict("email already registered")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", apperr.Dependency("failed to hash password", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// The pre-check races with concurrent registrations; the unique
		// constraint is the authority.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", apperr.Conflict("email already registered")
		}
		return nil, "", apperr.Dependency("failed to create user", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", apperr.Dependency("failed to issue token", err)
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, token, nil
}

// Login authenticates a user and issues a session token. Unknown email
// and wrong password both return the same generic error.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, "", apperr.Dependency("failed to find user", err)
	}
	if user == nil {
		return nil, "", errBadCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, "", errBadCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", apperr.Dependency("failed to issue token", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return user, token, nil
}

// ListTransactions returns a page of the user's transactions sorted by
// date descending. limit <= 0 selects the default page size; the page
// size is capped at MaxPageSize.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	txs, err := s.txs.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperr.Dependency("failed to list transactions", err)
	}
	return txs, nil
}

// CreateTransaction validates the input, assigns a new id and persists
// the transaction under the given owner.
func (s *Service) CreateTransaction(ctx context.Context, userID string, input models.TransactionInput) (*models.Transaction, error) {
	if err := validateTransactionInput(input); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        input.Type,
		Amount:      input.Amount,
		Category:    strings.TrimSpace(input.Category),
		Description: input.Description,
		Date:        input.Date,
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.txs.CreateTransaction(ctx, tx); err != nil {
		return nil, apperr.Dependency("failed to create transaction", err)
	}
	return tx, nil
}

// DeleteTransaction deletes one transaction matching both id and owner.
// A transaction owned by someone else is indistinguishable from a
// missing one.
func (s *Service) DeleteTransaction(ctx context.Context, userID, txID string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	count, err := s.txs.DeleteTransaction(ctx, userID, txID)
	if err != nil {
		return apperr.Dependency("failed to delete transaction", err)
	}
	if count == 0 {
		return apperr.NotFound("transaction not found")
	}
	return nil
}

// ResetTransactions deletes every transaction of the user and returns
// the number removed. Zero is not an error.
func (s *Service) ResetTransactions(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	count, err := s.txs.DeleteAllTransactions(ctx, userID)
	if err != nil {
		return 0, apperr.Dependency("failed to reset transactions", err)
	}
	s.log.Infof("Reset %d transactions for user %s", count, userID)
	return count, nil
}

// Summary aggregates the user's full transaction set
func (s *Service) Summary(ctx context.Context, userID string) (models.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	income, expense, err := s.txs.SumByType(ctx, userID)
	if err != nil {
		return models.Summary{}, apperr.Dependency("failed to compute summary", err)
	}
	return models.Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income - expense,
	}, nil
}

// ExportTransactions builds the spreadsheet export over the user's
// full transaction set.
func (s *Service) ExportTransactions(ctx context.Context, userID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	txs, err := s.txs.ListAllTransactions(ctx, userID)
	if err != nil {
		return nil, apperr.Dependency("failed to list transactions", err)
	}
	workbook, err := report.BuildWorkbook(txs)
	if err != nil {
		return nil, apperr.Dependency("failed to build workbook", err)
	}
	return workbook, nil
}

// EmailReport builds the user's report and emails it to destEmail.
// Delivery failures surface as a dependency error without retry.
func (s *Service) EmailReport(ctx context.Context, userID, destEmail string) error {
	destEmail = strings.TrimSpace(destEmail)
	if _, err := mail.ParseAddress(destEmail); err != nil {
		return apperr.Validation("invalid email address")
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return apperr.Dependency("failed to find user", err)
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}

	txs, err := s.txs.ListAllTransactions(ctx, userID)
	if err != nil {
		return apperr.Dependency("failed to list transactions", err)
	}
	workbook, err := report.BuildWorkbook(txs)
	if err != nil {
		return apperr.Dependency("failed to build workbook", err)
	}

	if err := s.sender.SendReport(destEmail, user.Name, report.Summarize(txs), workbook); err != nil {
		s.log.Errorf("Failed to send report to %s: %v", destEmail, err)
		return apperr.Dependency("failed to deliver report", err)
	}

	s.log.Infof("Report emailed to %s for user %s", destEmail, userID)
	return nil
}

// SendScheduledReports emails every user with at least one transaction
// their own report. Per-user failures are logged and skipped so one bad
// mailbox never aborts the sweep.
func (s *Service) SendScheduledReports(ctx context.Context) error {
	listCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	users, err := s.users.ListUsers(listCtx)
	cancel()
	if err != nil {
		return apperr.Dependency("failed to list users", err)
	}

	for _, user := range users {
		txCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		txs, err := s.txs.ListAllTransactions(txCtx, user.ID)
		cancel()
		if err != nil {
			s.log.Errorf("Scheduled report: failed to list transactions for %s: %v", user.ID, err)
			continue
		}
		if len(txs) == 0 {
			continue
		}

		workbook, err := report.BuildWorkbook(txs)
		if err != nil {
			s.log.Errorf("Scheduled report: failed to build workbook for %s: %v", user.ID, err)
			continue
		}
		if err := s.sender.SendReport(user.Email, user.Name, report.Summarize(txs), workbook); err != nil {
			s.log.Errorf("Scheduled report: failed to send to %s: %v", user.Email, err)
			continue
		}
		s.log.Infof("Scheduled report sent to %s", user.Email)
	}
	return nil
}

func validateTransactionInput(input models.TransactionInput) error {
	if input.Type != models.TypeIncome && input.Type != models.TypeExpense {
		return apperr.Validation("type must be %q or %q", models.TypeIncome, models.TypeExpense)
	}
	if input.Amount <= 0 {
		return apperr.Validation("amount must be positive")
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return apperr.Validation("date must use format YYYY-MM-DD")
	}
	if strings.TrimSpace(input.Category) == "" {
		return apperr.Validation("category is required")
	}
	return nil
}

// compile-time interface checks against the Postgres repository
var (
	_ UserRepository        = (*repository.Repository)(nil)
	_ TransactionRepository = (*repository.Repository)(nil)
)
