package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
)

const roleColumns = "id, name, description, created_at, updated_at"

func scanRole(row rowScanner) (*models.Role, error) {
	var r models.Role
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRoles returns every role ordered by id.
func (db *DB) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+roleColumns+" FROM roles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, *r)
	}
	return roles, rows.Err()
}

// GetRole retrieves a role by id.
func (db *DB) GetRole(ctx context.Context, id int64) (*models.Role, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+roleColumns+" FROM roles WHERE id = ?", id)
	r, err := scanRole(row)
	if err != nil {
		return nil, notFound(err, "role", strconv.FormatInt(id, 10))
	}
	return r, nil
}

// CreateRole inserts a role.
func (db *DB) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	ts := now()
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO roles (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)",
		name, description, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", classify(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetRole(ctx, id)
}

// UpdateRole changes a role's name and description.
func (db *DB) UpdateRole(ctx context.Context, id int64, name, description string) (*models.Role, error) {
	result, err := db.conn.ExecContext(ctx,
		"UPDATE roles SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		name, description, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, &NotFoundError{Entity: "role", Key: strconv.FormatInt(id, 10)}
	}
	return db.GetRole(ctx, id)
}

// DeleteRole removes a role and its user assignments. Users are untouched.
func (db *DB) DeleteRole(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM roles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete role: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "role", Key: strconv.FormatInt(id, 10)}
	}
	return nil
}

// ResolveRoleIDs maps role names to ids, preserving order. The first name
// that does not resolve is reported as a *NotFoundError.
func (db *DB) ResolveRoleIDs(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		var id int64
		err := db.conn.QueryRowContext(ctx, "SELECT id FROM roles WHERE name = ?", name).Scan(&id)
		if err != nil {
			return nil, notFound(err, "role", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
