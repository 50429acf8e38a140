package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
)

const categoryColumns = "id, name, description, created_at, updated_at"

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns every category ordered by id.
func (db *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// GetCategory retrieves a category by id.
func (db *DB) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if err != nil {
		return nil, notFound(err, "category", strconv.FormatInt(id, 10))
	}
	return c, nil
}

// CategoryNameTaken reports whether a category other than exceptID uses name.
func (db *DB) CategoryNameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE name = ? AND id <> ?", name, exceptID,
	).Scan(&n)
	return n > 0, err
}

// CreateCategory inserts a category.
func (db *DB) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	ts := now()
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO categories (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)",
		name, description, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", classify(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetCategory(ctx, id)
}

// UpdateCategory changes a category's name and description.
func (db *DB) UpdateCategory(ctx context.Context, id int64, name, description string) (*models.Category, error) {
	result, err := db.conn.ExecContext(ctx,
		"UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		name, description, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, &NotFoundError{Entity: "category", Key: strconv.FormatInt(id, 10)}
	}
	return db.GetCategory(ctx, id)
}

// DeleteCategory removes a category. It fails with ErrConflict while
// expenses still reference it.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "category", Key: strconv.FormatInt(id, 10)}
	}
	return nil
}

// ResolveCategoryID maps a category name to its id.
func (db *DB) ResolveCategoryID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, "SELECT id FROM categories WHERE name = ?", name).Scan(&id)
	if err != nil {
		return 0, notFound(err, "category", name)
	}
	return id, nil
}
