package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"
)

// NewUser holds the fields required to create a user.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	RoleIDs      []int64
}

// UserUpdate holds the mutable fields of a user. Nil pointers leave the
// stored value untouched.
type UserUpdate struct {
	Name         string
	Email        string
	PasswordHash *string
	RoleIDs      *[]int64
}

const userColumns = "id, name, email, password_hash, created_at, updated_at"

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user and attaches its roles in one transaction.
func (db *DB) CreateUser(ctx context.Context, nu NewUser) (*models.User, error) {
	var id int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		result, err := tx.ExecContext(ctx,
			"INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			nu.Name, nu.Email, nu.PasswordHash, ts, ts,
		)
		if err != nil {
			return classify(err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return err
		}
		return attachRoles(ctx, tx, id, nu.RoleIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return db.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user and its roles by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", strconv.FormatInt(id, 10))
	}
	if u.Roles, err = db.userRoles(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail retrieves a user and its roles by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	if u.Roles, err = db.userRoles(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// EmailTaken reports whether another user than exceptID already uses email.
// Pass 0 to check against every user.
func (db *DB) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?", email, exceptID,
	).Scan(&n)
	return n > 0, err
}

// UpdateUser applies u to the user with the given id. When RoleIDs is set
// the role assignment is replaced.
func (db *DB) UpdateUser(ctx context.Context, id int64, u UserUpdate) (*models.User, error) {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		sets := []string{"name = ?", "email = ?", "updated_at = ?"}
		args := []any{u.Name, u.Email, now()}
		if u.PasswordHash != nil {
			sets = append(sets, "password_hash = ?")
			args = append(args, *u.PasswordHash)
		}
		args = append(args, id)

		result, err := tx.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return classify(err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "user", Key: strconv.FormatInt(id, 10)}
		}

		if u.RoleIDs == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = ?", id); err != nil {
			return err
		}
		return attachRoles(ctx, tx, id, *u.RoleIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return db.GetUserByID(ctx, id)
}

// DeleteUser removes a user. Its expenses, sessions and role assignments
// cascade.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", classify(err))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "user", Key: strconv.FormatInt(id, 10)}
	}
	return nil
}

// UserRoleNames returns the role names held by userID. It fails with
// ErrNotFound when the user does not exist.
func (db *DB) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", userID).Scan(&exists)
	if err != nil {
		return nil, notFound(err, "user", strconv.FormatInt(userID, 10))
	}

	roles, err := db.userRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

func (db *DB) userRoles(ctx context.Context, userID int64) ([]models.Role, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	roles := []models.Role{}
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *r)
	}
	return roles, rows.Err()
}

func attachRoles(ctx context.Context, tx *sql.Tx, userID int64, roleIDs []int64) error {
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)", userID, roleID,
		); err != nil {
			return classify(err)
		}
	}
	return nil
}
