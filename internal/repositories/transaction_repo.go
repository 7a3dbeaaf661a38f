package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ssorath/centsible/internal/database"
	"github.com/ssorath/centsible/internal/models"
)

const transactionColumns = `id, user_id, category_id, kind, amount, currency, note,
	occurred_at, created_at, updated_at`

type TransactionRepository struct {
	db *database.DB
}

func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransactionRow(scanner rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	err := scanner.Scan(
		&txn.ID, &txn.UserID, &txn.CategoryID, &txn.Kind, &txn.Amount, &txn.Currency,
		&txn.Note, &txn.OccurredAt, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &txn, nil
}

func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	txn.ID = uuid.New().String()
	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	query := `
		INSERT INTO transactions (id, user_id, category_id, kind, amount, currency, note, occurred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + transactionColumns

	return scanTransactionRow(r.db.Pool.QueryRow(ctx, query,
		txn.ID, txn.UserID, txn.CategoryID, txn.Kind, txn.Amount, txn.Currency,
		txn.Note, txn.OccurredAt, txn.CreatedAt, txn.UpdatedAt,
	))
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`
	return scanTransactionRow(r.db.Pool.QueryRow(ctx, query, id, userID))
}

// List returns the user's transactions newest-first, narrowed by filter.
func (r *TransactionRepository) List(ctx context.Context, userID string, filter models.TransactionFilter) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []interface{}{userID}

	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND occurred_at < $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}

	query += " ORDER BY occurred_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	txns := make([]*models.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

func (r *TransactionRepository) Update(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	query := `
		UPDATE transactions SET category_id = $1, kind = $2, amount = $3, currency = $4,
			note = $5, occurred_at = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9
		RETURNING ` + transactionColumns

	return scanTransactionRow(r.db.Pool.QueryRow(ctx, query,
		txn.CategoryID, txn.Kind, txn.Amount, txn.Currency, txn.Note, txn.OccurredAt,
		time.Now(), txn.ID, txn.UserID,
	))
}

func (r *TransactionRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM transactions WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Summarize computes the dashboard aggregation for a date range in two
// single-pass queries (per-category and per-month).
func (r *TransactionRepository) Summarize(ctx context.Context, userID string, from, to time.Time) (*models.Summary, error) {
	summary := &models.Summary{
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
		ByCategory: make([]models.CategoryTotal, 0),
		ByMonth:    make([]models.MonthTotal, 0),
	}

	categoryQuery := `
		SELECT t.category_id, COALESCE(c.name, 'Uncategorized'), t.kind, SUM(t.amount)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.occurred_at >= $2 AND t.occurred_at < $3
		GROUP BY t.category_id, c.name, t.kind
		ORDER BY SUM(t.amount) DESC`

	rows, err := r.db.Pool.Query(ctx, categoryQuery, userID, from, to)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.CategoryName, &ct.Kind, &ct.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		switch ct.Kind {
		case models.KindIncome:
			summary.Income = summary.Income.Add(ct.Total)
		case models.KindExpense:
			summary.Expense = summary.Expense.Add(ct.Total)
		}
		summary.ByCategory = append(summary.ByCategory, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category totals: %w", err)
	}

	monthQuery := `
		SELECT to_char(date_trunc('month', occurred_at), 'YYYY-MM') AS month,
			COALESCE(SUM(amount) FILTER (WHERE kind = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'expense'), 0)
		FROM transactions
		WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY month
		ORDER BY month`

	monthRows, err := r.db.Pool.Query(ctx, monthQuery, userID, from, to)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer monthRows.Close()

	for monthRows.Next() {
		var mt models.MonthTotal
		if err := monthRows.Scan(&mt.Month, &mt.Income, &mt.Expense); err != nil {
			return nil, fmt.Errorf("failed to scan month total: %w", err)
		}
		summary.ByMonth = append(summary.ByMonth, mt)
	}
	if err := monthRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating month totals: %w", err)
	}

	summary.Net = summary.Income.Sub(summary.Expense)
	return summary, nil
}
