package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fer-gc05/ExpenseTrackerAPI/internal/auth"
	"github.com/fer-gc05/ExpenseTrackerAPI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db       *DB
	ctx      context.Context
	user     *models.User
	other    *models.User
	food     *models.Category
	travel   *models.Category
	userRole int64
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	ids, err := db.ResolveRoleIDs(suite.ctx, []string{models.RoleUser})
	require.NoError(suite.T(), err, "seeded user role missing")
	suite.userRole = ids[0]

	suite.user = suite.createUser("alice@example.com", ids)
	suite.other = suite.createUser("bob@example.com", ids)

	suite.food, err = db.CreateCategory(suite.ctx, "Food", "Groceries and eating out")
	require.NoError(suite.T(), err)
	suite.travel, err = db.CreateCategory(suite.ctx, "Travel", "Trips")
	require.NoError(suite.T(), err)
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) createUser(email string, roleIDs []int64) *models.User {
	hash, err := auth.HashPassword("testpass")
	require.NoError(suite.T(), err, "failed to hash password")
	u, err := suite.db.CreateUser(suite.ctx, NewUser{
		Name: email, Email: email, PasswordHash: hash, RoleIDs: roleIDs,
	})
	require.NoError(suite.T(), err, "failed to create user %s", email)
	return u
}

func (suite *DBTestSuite) createExpense(owner *models.User, cat *models.Category, name string, date time.Time) *models.Expense {
	e, err := suite.db.CreateExpense(suite.ctx, NewExpense{
		UserID: owner.ID, CategoryID: cat.ID, Name: name, Amount: 1000, Description: name, ExpenseDate: date,
	})
	require.NoError(suite.T(), err, "failed to create expense: %s", name)
	return e
}

func (suite *DBTestSuite) TestSeededRoles() {
	roles, err := suite.db.ListRoles(suite.ctx)
	require.NoError(suite.T(), err)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(suite.T(), []string{models.RoleAdmin, models.RoleUser}, names)
}

func (suite *DBTestSuite) TestCreateUserAttachesRoles() {
	got, err := suite.db.GetUserByEmail(suite.ctx, "alice@example.com")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), got.HasRole(models.RoleUser))
	assert.False(suite.T(), got.HasRole(models.RoleAdmin))

	names, err := suite.db.UserRoleNames(suite.ctx, got.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{models.RoleUser}, names)
}

func (suite *DBTestSuite) TestCreateUserDuplicateEmail() {
	_, err := suite.db.CreateUser(suite.ctx, NewUser{Name: "x", Email: "alice@example.com", PasswordHash: "h"})
	assert.ErrorIs(suite.T(), err, ErrConflict)

	taken, err := suite.db.EmailTaken(suite.ctx, "alice@example.com", 0)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), taken)

	taken, err = suite.db.EmailTaken(suite.ctx, "alice@example.com", suite.user.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), taken, "own email is not taken")
}

func (suite *DBTestSuite) TestUserRoleNamesUnknownUser() {
	_, err := suite.db.UserRoleNames(suite.ctx, 9999)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestUpdateUserSyncsRoles() {
	adminIDs, err := suite.db.ResolveRoleIDs(suite.ctx, []string{models.RoleAdmin})
	require.NoError(suite.T(), err)

	hash := "newhash"
	updated, err := suite.db.UpdateUser(suite.ctx, suite.user.ID, UserUpdate{
		Name: "Alice", Email: "alice@example.com", PasswordHash: &hash, RoleIDs: &adminIDs,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alice", updated.Name)
	assert.Equal(suite.T(), "newhash", updated.PasswordHash)
	assert.True(suite.T(), updated.HasRole(models.RoleAdmin))
	assert.False(suite.T(), updated.HasRole(models.RoleUser))

	// Without RoleIDs the assignment is left alone.
	updated, err = suite.db.UpdateUser(suite.ctx, suite.user.ID, UserUpdate{Name: "A", Email: "alice@example.com"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "newhash", updated.PasswordHash)
	assert.True(suite.T(), updated.HasRole(models.RoleAdmin))

	_, err = suite.db.UpdateUser(suite.ctx, 9999, UserUpdate{Name: "n", Email: "n@example.com"})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestDeleteUserCascades() {
	e := suite.createExpense(suite.user, suite.food, "Lunch", time.Now())
	require.NoError(suite.T(), suite.db.CreateSession(suite.ctx, "tok", suite.user.ID, time.Now().Add(time.Hour)))

	require.NoError(suite.T(), suite.db.DeleteUser(suite.ctx, suite.user.ID))

	_, err := suite.db.GetExpense(suite.ctx, e.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
	_, found, err := suite.db.LookupSession(suite.ctx, "tok", time.Now())
	require.NoError(suite.T(), err)
	assert.False(suite.T(), found)

	assert.ErrorIs(suite.T(), suite.db.DeleteUser(suite.ctx, suite.user.ID), ErrNotFound)
}

func (suite *DBTestSuite) TestRoleCRUD() {
	r, err := suite.db.CreateRole(suite.ctx, "auditor", "Read-only access")
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateRole(suite.ctx, "auditor", "dup")
	assert.ErrorIs(suite.T(), err, ErrConflict)

	r, err = suite.db.UpdateRole(suite.ctx, r.ID, "reviewer", "Reviews")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "reviewer", r.Name)

	_, err = suite.db.UpdateRole(suite.ctx, r.ID, models.RoleAdmin, "clash")
	assert.ErrorIs(suite.T(), err, ErrConflict)

	require.NoError(suite.T(), suite.db.DeleteRole(suite.ctx, r.ID))
	_, err = suite.db.GetRole(suite.ctx, r.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
	assert.ErrorIs(suite.T(), suite.db.DeleteRole(suite.ctx, r.ID), ErrNotFound)
}

func (suite *DBTestSuite) TestDeleteRoleKeepsUsers() {
	require.NoError(suite.T(), suite.db.DeleteRole(suite.ctx, suite.userRole))

	u, err := suite.db.GetUserByID(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), u.Roles)
}

func (suite *DBTestSuite) TestResolveRoleIDsTypedNotFound() {
	_, err := suite.db.ResolveRoleIDs(suite.ctx, []string{models.RoleUser, "ghost"})
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(suite.T(), err, &nf)
	assert.Equal(suite.T(), "role", nf.Entity)
	assert.Equal(suite.T(), "ghost", nf.Key)
}

func (suite *DBTestSuite) TestCategoryCRUD() {
	id, err := suite.db.ResolveCategoryID(suite.ctx, "Food")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.food.ID, id)

	_, err = suite.db.ResolveCategoryID(suite.ctx, "Nope")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	taken, err := suite.db.CategoryNameTaken(suite.ctx, "Food", 0)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), taken)

	c, err := suite.db.UpdateCategory(suite.ctx, suite.travel.ID, "Trips", "Holidays")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Trips", c.Name)

	_, err = suite.db.UpdateCategory(suite.ctx, 9999, "x", "y")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	all, err := suite.db.ListCategories(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 2)
}

func (suite *DBTestSuite) TestDeleteCategoryInUseConflicts() {
	suite.createExpense(suite.user, suite.food, "Lunch", time.Now())

	err := suite.db.DeleteCategory(suite.ctx, suite.food.ID)
	assert.ErrorIs(suite.T(), err, ErrConflict)

	require.NoError(suite.T(), suite.db.DeleteCategory(suite.ctx, suite.travel.ID))
	assert.ErrorIs(suite.T(), suite.db.DeleteCategory(suite.ctx, suite.travel.ID), ErrNotFound)
}

func (suite *DBTestSuite) TestCreateExpense() {
	e, err := suite.db.CreateExpense(suite.ctx, NewExpense{
		UserID: suite.user.ID, CategoryID: suite.food.ID, Name: "Coffee", Amount: 350, Description: "Flat white",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, e.UserID)
	assert.Equal(suite.T(), models.Money(350), e.Amount)
	assert.Equal(suite.T(), "Food", e.Category.Name)
	assert.Equal(suite.T(), suite.user.Email, e.User.Email)
	assert.WithinDuration(suite.T(), time.Now(), e.ExpenseDate, 5*time.Second, "date defaults to now")
}

func (suite *DBTestSuite) TestCreateExpenseUnknownCategory() {
	_, err := suite.db.CreateExpense(suite.ctx, NewExpense{
		UserID: suite.user.ID, CategoryID: 9999, Name: "x", Description: "x",
	})
	assert.ErrorIs(suite.T(), err, ErrConflict)
}

func (suite *DBTestSuite) TestUpdateExpenseKeepsDateWhenZero() {
	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	e := suite.createExpense(suite.user, suite.food, "Lunch", date)

	updated, err := suite.db.UpdateExpense(suite.ctx, e.ID, ExpenseUpdate{
		CategoryID: suite.travel.ID, Name: "Train", Amount: 2500, Description: "Ticket",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Train", updated.Name)
	assert.Equal(suite.T(), "Travel", updated.Category.Name)
	assert.True(suite.T(), date.Equal(updated.ExpenseDate), "expense date preserved")

	_, err = suite.db.UpdateExpense(suite.ctx, 9999, ExpenseUpdate{CategoryID: suite.food.ID})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestDeleteExpense() {
	e := suite.createExpense(suite.user, suite.food, "Lunch", time.Now())
	require.NoError(suite.T(), suite.db.DeleteExpense(suite.ctx, e.ID))
	assert.ErrorIs(suite.T(), suite.db.DeleteExpense(suite.ctx, e.ID), ErrNotFound)
}

func (suite *DBTestSuite) TestListExpensesScopedToOwner() {
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	// Interleave writes from both users.
	for i := range 10 {
		owner := suite.user
		if i%2 == 1 {
			owner = suite.other
		}
		suite.createExpense(owner, suite.food, fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Hour))
	}

	for _, u := range []*models.User{suite.user, suite.other} {
		list, err := suite.db.ListExpenses(suite.ctx, u.ID, nil)
		require.NoError(suite.T(), err)
		assert.Len(suite.T(), list, 5)
		for i, e := range list {
			assert.Equal(suite.T(), u.ID, e.UserID, "leaked expense %d", e.ID)
			assert.Equal(suite.T(), u.ID, e.User.ID)
			if i > 0 {
				assert.Greater(suite.T(), e.ID, list[i-1].ID, "insertion order")
			}
		}
	}
}

func (suite *DBTestSuite) TestListExpensesDateRangeInclusive() {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	suite.createExpense(suite.user, suite.food, "before", day.Add(-time.Nanosecond))
	suite.createExpense(suite.user, suite.food, "start", day)
	suite.createExpense(suite.user, suite.food, "noon", day.Add(12*time.Hour))
	suite.createExpense(suite.user, suite.food, "end", day.Add(24*time.Hour-time.Nanosecond))
	suite.createExpense(suite.user, suite.food, "after", day.Add(24*time.Hour))

	rng := &models.DateRange{Start: day, End: day.Add(24*time.Hour - time.Nanosecond)}
	list, err := suite.db.ListExpenses(suite.ctx, suite.user.ID, rng)
	require.NoError(suite.T(), err)

	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name)
	}
	assert.Equal(suite.T(), []string{"start", "noon", "end"}, names)
}

func (suite *DBTestSuite) TestListExpensesRangeAcrossTimezones() {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 23:00 local on March 1st is 04:00 UTC on March 2nd.
	suite.createExpense(suite.user, suite.food, "late", time.Date(2025, 3, 1, 23, 0, 0, 0, loc))

	rng := &models.DateRange{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, loc),
		End:   time.Date(2025, 3, 1, 23, 59, 59, 0, loc),
	}
	list, err := suite.db.ListExpenses(suite.ctx, suite.user.ID, rng)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), list, 1)
}

func (suite *DBTestSuite) TestCategoryTotals() {
	now := time.Now()
	suite.createExpense(suite.user, suite.food, "a", now)
	suite.createExpense(suite.user, suite.food, "b", now)
	suite.createExpense(suite.user, suite.travel, "c", now)
	suite.createExpense(suite.other, suite.travel, "d", now)

	totals, err := suite.db.CategoryTotals(suite.ctx, suite.user.ID, nil)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), totals, 2)
	assert.Equal(suite.T(), models.CategoryTotal{Category: "Food", Total: 2000, Count: 2}, totals[0])
	assert.Equal(suite.T(), models.CategoryTotal{Category: "Travel", Total: 1000, Count: 1}, totals[1])
}

// SessionTestSuite provides a test suite for session operations
type SessionTestSuite struct {
	suite.Suite
	db   *DB
	user *models.User
}

// SetupTest runs before each test
func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	password, err := auth.HashPassword("testpass")
	require.NoError(suite.T(), err, "failed to hash password")

	user, err := suite.db.CreateUser(context.Background(), NewUser{
		Name: "testuser", Email: "testuser@example.com", PasswordHash: password,
	})
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) TestCreateAndLookupSession() {
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)
	require.NoError(suite.T(), suite.db.CreateSession(ctx, "tok-1", suite.user.ID, expiresAt))

	userID, found, err := suite.db.LookupSession(ctx, "tok-1", time.Now())
	require.NoError(suite.T(), err)
	assert.True(suite.T(), found)
	assert.Equal(suite.T(), suite.user.ID, userID)

	_, found, err = suite.db.LookupSession(ctx, "tok-1", expiresAt.Add(time.Second))
	require.NoError(suite.T(), err)
	assert.False(suite.T(), found, "expired session must not be found")
}

func (suite *SessionTestSuite) TestDeleteSession() {
	ctx := context.Background()
	require.NoError(suite.T(), suite.db.CreateSession(ctx, "tok-2", suite.user.ID, time.Now().Add(time.Hour)))

	deleted, err := suite.db.DeleteSession(ctx, "tok-2")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), deleted)

	deleted, err = suite.db.DeleteSession(ctx, "tok-2")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), deleted)
}

func (suite *SessionTestSuite) TestCleanExpiredSessions() {
	ctx := context.Background()
	now := time.Now()
	require.NoError(suite.T(), suite.db.CreateSession(ctx, "old", suite.user.ID, now.Add(-time.Minute)))
	require.NoError(suite.T(), suite.db.CreateSession(ctx, "live", suite.user.ID, now.Add(time.Hour)))

	n, err := suite.db.CleanExpiredSessions(ctx, now)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)

	_, found, err := suite.db.LookupSession(ctx, "live", now)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), found)
}

func (suite *SessionTestSuite) TestTokenServiceRoundTrip() {
	ctx := context.Background()
	svc := auth.NewTokenService(suite.db, auth.TokenConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"), Issuer: "test", TTL: time.Hour,
	})

	token, err := svc.Issue(ctx, suite.user.ID)
	require.NoError(suite.T(), err)

	userID, err := svc.Validate(ctx, token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, userID)

	require.NoError(suite.T(), svc.Invalidate(ctx, token))
	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(suite.T(), err, auth.ErrUnauthenticated)
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
