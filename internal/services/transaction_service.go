package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ssorath/centsible/internal/models"
)

// TransactionRepository is the ledger storage contract.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	GetByID(ctx context.Context, userID, id string) (*models.Transaction, error)
	List(ctx context.Context, userID string, filter models.TransactionFilter) ([]*models.Transaction, error)
	Update(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	Summarize(ctx context.Context, userID string, from, to time.Time) (*models.Summary, error)
}

// CategoryRepository is the category storage contract.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) (*models.Category, error)
	List(ctx context.Context, userID string) ([]*models.Category, error)
	GetByID(ctx context.Context, userID, id string) (*models.Category, error)
	Delete(ctx context.Context, userID, id string) error
}

// TransactionInput is the write shape for create and update.
type TransactionInput struct {
	CategoryID *string `json:"categoryId" validate:"omitempty,uuid"`
	Kind       string  `json:"kind" validate:"required,oneof=income expense"`
	Amount     string  `json:"amount" validate:"required"`
	Currency   string  `json:"currency" validate:"required,len=3,alpha"`
	Note       string  `json:"note" validate:"max=500"`
	OccurredAt string  `json:"occurredAt" validate:"required"`
}

// TransactionResponse is the read shape returned to clients.
type TransactionResponse struct {
	ID         string  `json:"id"`
	CategoryID *string `json:"categoryId,omitempty"`
	Kind       string  `json:"kind"`
	Amount     string  `json:"amount"`
	Currency   string  `json:"currency"`
	Note       string  `json:"note,omitempty"`
	OccurredAt string  `json:"occurredAt"`
	CreatedAt  string  `json:"createdAt"`
}

// TransactionService owns ledger entries and their category bookkeeping.
type TransactionService struct {
	transactions TransactionRepository
	categories   CategoryRepository
	logger       *slog.Logger
}

func NewTransactionService(transactions TransactionRepository, categories CategoryRepository, logger *slog.Logger) *TransactionService {
	return &TransactionService{transactions: transactions, categories: categories, logger: logger}
}

func (s *TransactionService) Create(ctx context.Context, userID string, input *TransactionInput) (*TransactionResponse, error) {
	txn, err := s.fromInput(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	created, err := s.transactions.Create(ctx, txn)
	if err != nil {
		s.logger.Error("failed to create transaction", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return transactionToResponse(created), nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (*TransactionResponse, error) {
	txn, err := s.transactions.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get transaction", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return transactionToResponse(txn), nil
}

func (s *TransactionService) List(ctx context.Context, userID string, filter models.TransactionFilter) ([]*TransactionResponse, error) {
	txns, err := s.transactions.List(ctx, userID, filter)
	if err != nil {
		s.logger.Error("failed to list transactions", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, transactionToResponse(txn))
	}
	return responses, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id string, input *TransactionInput) (*TransactionResponse, error) {
	if _, err := s.transactions.GetByID(ctx, userID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load transaction for update", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	txn, err := s.fromInput(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	txn.ID = id

	updated, err := s.transactions.Update(ctx, txn)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update transaction", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return transactionToResponse(updated), nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.transactions.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete transaction", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// Summarize aggregates the user's ledger over a date range. A zero range
// defaults to the current calendar year.
func (s *TransactionService) Summarize(ctx context.Context, userID string, from, to time.Time) (*models.Summary, error) {
	if from.IsZero() {
		now := time.Now().UTC()
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if to.Before(from) {
		return nil, models.ErrBadRequest
	}

	summary, err := s.transactions.Summarize(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("failed to summarize transactions", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return summary, nil
}

// ListCategories returns the user's category set.
func (s *TransactionService) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	cats, err := s.categories.List(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list categories", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return cats, nil
}

// CategoryInput is the write shape for creating a category.
type CategoryInput struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Kind  string `json:"kind" validate:"required,oneof=income expense"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func (s *TransactionService) CreateCategory(ctx context.Context, userID string, input *CategoryInput) (*models.Category, error) {
	category := &models.Category{
		UserID: userID,
		Name:   strings.TrimSpace(input.Name),
		Kind:   input.Kind,
		Color:  input.Color,
	}

	created, err := s.categories.Create(ctx, category)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create category", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return created, nil
}

// DeleteCategory removes a category; its transactions survive uncategorized.
func (s *TransactionService) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := s.categories.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete category", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// fromInput validates the money and date fields and checks category
// ownership before building the model.
func (s *TransactionService) fromInput(ctx context.Context, userID string, input *TransactionInput) (*models.Transaction, error) {
	amount, err := decimal.NewFromString(input.Amount)
	if err != nil || amount.IsNegative() || amount.IsZero() {
		return nil, models.ErrBadRequest
	}

	occurredAt, err := time.Parse(time.RFC3339, input.OccurredAt)
	if err != nil {
		return nil, models.ErrBadRequest
	}

	if input.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, userID, *input.CategoryID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrBadRequest
			}
			s.logger.Error("failed to check category", slog.String("user_id", userID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	return &models.Transaction{
		UserID:     userID,
		CategoryID: input.CategoryID,
		Kind:       input.Kind,
		Amount:     amount.Round(2),
		Currency:   strings.ToUpper(input.Currency),
		Note:       strings.TrimSpace(input.Note),
		OccurredAt: occurredAt,
	}, nil
}

func transactionToResponse(txn *models.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:         txn.ID,
		CategoryID: txn.CategoryID,
		Kind:       txn.Kind,
		Amount:     txn.Amount.StringFixed(2),
		Currency:   txn.Currency,
		Note:       txn.Note,
		OccurredAt: txn.OccurredAt.Format(time.RFC3339),
		CreatedAt:  txn.CreatedAt.Format(time.RFC3339),
	}
}
