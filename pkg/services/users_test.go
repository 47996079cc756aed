package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/pkg/database"
	"library-backend/pkg/models"
)

func setupUserTest(t *testing.T) *UserService {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	return NewUserService(db)
}

func TestCreateUserHashesPassword(t *testing.T) {
	users := setupUserTest(t)

	user, err := users.Create("Carol", "carol@test.local", "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.True(t, users.VerifyPassword(user, "s3cret"))
	assert.False(t, users.VerifyPassword(user, "wrong"))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	users := setupUserTest(t)

	_, err := users.Create("Carol", "carol@test.local", "pw", models.RoleStudent)
	require.NoError(t, err)

	_, err = users.Create("Other Carol", "carol@test.local", "pw", models.RoleTeacher)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

// A registration that loses the race to the unique index must surface as
// ErrEmailTaken, not a raw driver error.
func TestCreateUserDuplicateEmailFromIndex(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)
	users := NewUserService(db)

	winner := models.User{
		UserUid:      uuid.New().String(),
		Name:         "First Carol",
		Email:        "carol@test.local",
		PasswordHash: "x",
		Role:         models.RoleStudent,
	}
	require.NoError(t, db.Create(&winner).Error)

	_, err = users.Create("Second Carol", "carol@test.local", "pw", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateUserEmailConflict(t *testing.T) {
	users := setupUserTest(t)

	_, err := users.Create("Carol", "carol@test.local", "pw", models.RoleStudent)
	require.NoError(t, err)
	dave, err := users.Create("Dave", "dave@test.local", "pw", models.RoleStudent)
	require.NoError(t, err)

	taken := "carol@test.local"
	_, err = users.Update(dave.ID, UserUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Re-submitting your own email is not a conflict.
	own := "dave@test.local"
	updated, err := users.Update(dave.ID, UserUpdate{Email: &own})
	require.NoError(t, err)
	assert.Equal(t, own, updated.Email)
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	users := setupUserTest(t)

	user, err := users.Create("Carol", "carol@test.local", "old", models.RoleStudent)
	require.NoError(t, err)

	newPassword := "new"
	updated, err := users.Update(user.ID, UserUpdate{Password: &newPassword})
	require.NoError(t, err)
	assert.True(t, users.VerifyPassword(updated, "new"))
	assert.False(t, users.VerifyPassword(updated, "old"))
}

func TestListUsersByRole(t *testing.T) {
	users := setupUserTest(t)

	_, err := users.Create("Carol", "carol@test.local", "pw", models.RoleStudent)
	require.NoError(t, err)
	_, err = users.Create("Dave", "dave@test.local", "pw", models.RoleLibrarian)
	require.NoError(t, err)

	items, total, err := users.List(1, 20, models.RoleLibrarian)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Dave", items[0].Name)
}

func TestDeleteUser(t *testing.T) {
	users := setupUserTest(t)

	user, err := users.Create("Carol", "carol@test.local", "pw", models.RoleStudent)
	require.NoError(t, err)
	require.NoError(t, users.Delete(user.ID))

	_, err = users.GetByID(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, users.Delete(user.ID), ErrNotFound)
}
