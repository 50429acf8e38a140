package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
)

// NewExpense holds the fields required to create an expense. UserID is the
// acting identity, never a value taken from the request body.
type NewExpense struct {
	UserID      int64
	CategoryID  int64
	Name        string
	Amount      models.Money
	Description string
	ExpenseDate time.Time
}

// ExpenseUpdate holds the mutable fields of an expense. A zero ExpenseDate
// keeps the stored date.
type ExpenseUpdate struct {
	CategoryID  int64
	Name        string
	Amount      models.Money
	Description string
	ExpenseDate time.Time
}

const expenseSelect = `
	SELECT e.id, e.name, e.amount_cents, e.description, e.expense_date, e.user_id, e.category_id,
	       e.created_at, e.updated_at,
	       c.id, c.name, c.description, c.created_at, c.updated_at,
	       u.id, u.name, u.email, u.created_at, u.updated_at
	FROM expenses e
	JOIN categories c ON c.id = e.category_id
	JOIN users u ON u.id = e.user_id
`

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		e models.Expense
		c models.Category
		u models.User
	)
	err := row.Scan(
		&e.ID, &e.Name, &e.Amount, &e.Description, &e.ExpenseDate, &e.UserID, &e.CategoryID,
		&e.CreatedAt, &e.UpdatedAt,
		&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt,
		&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Category = &c
	e.User = &u
	return &e, nil
}

// CreateExpense inserts a new expense. A zero ExpenseDate defaults to now.
func (db *DB) CreateExpense(ctx context.Context, ne NewExpense) (*models.Expense, error) {
	ts := now()
	date := ne.ExpenseDate
	if date.IsZero() {
		date = ts
	}
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO expenses (name, amount_cents, description, expense_date, user_id, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ne.Name, int64(ne.Amount), ne.Description, date.UTC(), ne.UserID, ne.CategoryID, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", classify(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetExpense(ctx, id)
}

// GetExpense retrieves a single expense by ID with its category and owner.
func (db *DB) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	row := db.conn.QueryRowContext(ctx, expenseSelect+" WHERE e.id = ?", id)
	e, err := scanExpense(row)
	if err != nil {
		return nil, notFound(err, "expense", strconv.FormatInt(id, 10))
	}
	return e, nil
}

// UpdateExpense updates an existing expense in the database.
func (db *DB) UpdateExpense(ctx context.Context, id int64, u ExpenseUpdate) (*models.Expense, error) {
	query := "UPDATE expenses SET name = ?, amount_cents = ?, description = ?, category_id = ?, updated_at = ?"
	args := []any{u.Name, int64(u.Amount), u.Description, u.CategoryID, now()}
	if !u.ExpenseDate.IsZero() {
		query += ", expense_date = ?"
		args = append(args, u.ExpenseDate.UTC())
	}
	args = append(args, id)

	result, err := db.conn.ExecContext(ctx, query+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, &NotFoundError{Entity: "expense", Key: strconv.FormatInt(id, 10)}
	}
	return db.GetExpense(ctx, id)
}

// DeleteExpense removes an expense by id.
func (db *DB) DeleteExpense(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "expense", Key: strconv.FormatInt(id, 10)}
	}
	return nil
}

// ListExpenses returns the expenses owned by userID in insertion order,
// optionally restricted to an inclusive expense_date range.
func (db *DB) ListExpenses(ctx context.Context, userID int64, rng *models.DateRange) ([]models.Expense, error) {
	where, args := expenseScope(userID, rng)
	rows, err := db.conn.QueryContext(ctx, expenseSelect+where+" ORDER BY e.id", args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// CategoryTotals sums the expenses owned by userID per category, largest
// total first.
func (db *DB) CategoryTotals(ctx context.Context, userID int64, rng *models.DateRange) ([]models.CategoryTotal, error) {
	where, args := expenseScope(userID, rng)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.name, SUM(e.amount_cents), COUNT(*)
		FROM expenses e
		JOIN categories c ON c.id = e.category_id
	`+where+`
		GROUP BY c.id, c.name
		ORDER BY SUM(e.amount_cents) DESC, c.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()

	var totals []models.CategoryTotal
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func expenseScope(userID int64, rng *models.DateRange) (string, []any) {
	where := " WHERE e.user_id = ?"
	args := []any{userID}
	if rng != nil {
		where += " AND e.expense_date >= ? AND e.expense_date <= ?"
		args = append(args, rng.Start.UTC(), rng.End.UTC())
	}
	return where, args
}
