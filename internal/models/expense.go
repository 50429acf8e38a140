package models

import "time"

// Role names seeded by the initial migration.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Expense represents a financial expense record.
type Expense struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Amount      Money     `json:"amount"`
	Description string    `json:"description"`
	ExpenseDate time.Time `json:"expense_date"`
	UserID      int64     `json:"user_id"`
	CategoryID  int64     `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Category *Category `json:"category,omitempty"`
	User     *User     `json:"user,omitempty"`
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Roles []Role `json:"roles,omitempty"`
}

// HasRole reports whether the loaded role set contains name.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Role is a named permission set assigned to users.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category groups expenses.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DateRange is an inclusive [Start, End] interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, boundaries included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// CategoryTotal aggregates spending for a single category.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    Money  `json:"total"`
	Count    int    `json:"count"`
}
