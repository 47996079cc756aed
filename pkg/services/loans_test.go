package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"library-backend/pkg/database"
	"library-backend/pkg/models"
)

func setupLoanTest(t *testing.T) (*gorm.DB, *BookService, *LoanService) {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)

	books := NewBookService(db)
	loans := NewLoanService(db, books)
	return db, books, loans
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{
		UserUid:      uuid.New().String(),
		Name:         "Bob Borrower",
		Email:        uuid.New().String() + "@test.local",
		PasswordHash: "x",
		Role:         models.RoleStudent,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestCreateLoanDecrementsAvailability(t *testing.T) {
	db, books, loans := setupLoanTest(t)
	user := createTestUser(t, db)
	book, err := books.Create("Refactoring", "Martin Fowler", "", 1)
	require.NoError(t, err)

	start := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	loans.SetClock(func() time.Time { return start })

	detail, err := loans.Create(book.ID, user.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, detail.Loan.Status)
	assert.Nil(t, detail.Loan.ReturnDate)
	assert.Equal(t, start.AddDate(0, 0, 30).Unix(), detail.Loan.DueDate.Unix())
	assert.Equal(t, "Refactoring", detail.BookTitle)
	assert.Equal(t, "Bob Borrower", detail.UserName)

	reloaded, err := books.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableCopies)

	// No copies left: the next loan attempt is rejected and nothing changes.
	_, err = loans.Create(book.ID, user.ID, 30)
	assert.ErrorIs(t, err, ErrBookUnavailable)

	reloaded, err = books.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.AvailableCopies)

	var count int64
	db.Model(&models.Loan{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCreateLoanUnknownBookOrUser(t *testing.T) {
	db, _, loans := setupLoanTest(t)
	user := createTestUser(t, db)

	_, err := loans.Create(9999, user.ID, 30)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnLoan(t *testing.T) {
	db, books, loans := setupLoanTest(t)
	user := createTestUser(t, db)
	book, err := books.Create("Refactoring", "Martin Fowler", "", 2)
	require.NoError(t, err)

	detail, err := loans.Create(book.ID, user.ID, 30)
	require.NoError(t, err)

	returned, err := loans.Return(detail.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, returned.Loan.Status)
	require.NotNil(t, returned.Loan.ReturnDate)
	firstReturnDate := *returned.Loan.ReturnDate

	reloaded, err := books.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.AvailableCopies)

	// Returning again conflicts and leaves return_date untouched.
	_, err = loans.Return(detail.Loan.ID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)

	var loan models.Loan
	require.NoError(t, db.First(&loan, detail.Loan.ID).Error)
	require.NotNil(t, loan.ReturnDate)
	assert.Equal(t, firstReturnDate.Unix(), loan.ReturnDate.Unix())

	reloaded, err = books.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.AvailableCopies)
}

func TestReturnUnknownLoan(t *testing.T) {
	_, _, loans := setupLoanTest(t)
	_, err := loans.Return(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnOverdueLoanAllowed(t *testing.T) {
	db, books, loans := setupLoanTest(t)
	user := createTestUser(t, db)
	book, err := books.Create("Refactoring", "Martin Fowler", "", 1)
	require.NoError(t, err)

	start := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	loans.SetClock(func() time.Time { return start })
	detail, err := loans.Create(book.ID, user.ID, 14)
	require.NoError(t, err)

	loans.SetClock(func() time.Time { return start.AddDate(0, 0, 20) })
	count, err := loans.ReindexOverdue()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	returned, err := loans.Return(detail.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, returned.Loan.Status)
	require.NotNil(t, returned.Loan.ReturnDate)
	_ = db
}

func TestReindexOverdueIdempotent(t *testing.T) {
	db, books, loans := setupLoanTest(t)
	user := createTestUser(t, db)
	book, err := books.Create("Refactoring", "Martin Fowler", "", 3)
	require.NoError(t, err)

	start := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	loans.SetClock(func() time.Time { return start })

	_, err = loans.Create(book.ID, user.ID, 10)
	require.NoError(t, err)
	_, err = loans.Create(book.ID, user.ID, 10)
	require.NoError(t, err)
	kept, err := loans.Create(book.ID, user.ID, 60)
	require.NoError(t, err)

	loans.SetClock(func() time.Time { return start.AddDate(0, 0, 30) })

	count, err := loans.ReindexOverdue()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Second consecutive run on unchanged data changes nothing.
	count, err = loans.ReindexOverdue()
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	var loan models.Loan
	require.NoError(t, db.First(&loan, kept.Loan.ID).Error)
	assert.Equal(t, models.StatusActive, loan.Status)
}

// The round-trip invariant: after any sequence of create/return/reindex,
// a loan is RETURNED exactly when its return date is set.
func TestReturnedStatusMatchesReturnDate(t *testing.T) {
	db, books, loans := setupLoanTest(t)
	user := createTestUser(t, db)
	book, err := books.Create("Refactoring", "Martin Fowler", "", 5)
	require.NoError(t, err)

	start := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	loans.SetClock(func() time.Time { return start })

	var ids []uint
	for i := 0; i < 4; i++ {
		d, err := loans.Create(book.ID, user.ID, 7)
		require.NoError(t, err)
		ids = append(ids, d.Loan.ID)
	}
	_, err = loans.Return(ids[0])
	require.NoError(t, err)

	loans.SetClock(func() time.Time { return start.AddDate(0, 0, 10) })
	_, err = loans.ReindexOverdue()
	require.NoError(t, err)
	_, err = loans.Return(ids[1])
	require.NoError(t, err)

	var all []models.Loan
	require.NoError(t, db.Find(&all).Error)
	for _, loan := range all {
		if loan.Status == models.StatusReturned {
			assert.NotNil(t, loan.ReturnDate, "loan %d", loan.ID)
		} else {
			assert.Nil(t, loan.ReturnDate, "loan %d", loan.ID)
		}
	}
}

// Availability must stay inside [0, total_copies] under any interleaving
// of loans and returns.
func TestAvailabilityStaysInBounds(t *testing.T) {
	db, books, loans := setupLoanTest(t)
	user := createTestUser(t, db)

	const total = 3
	book, err := books.Create("Refactoring", "Martin Fowler", "", total)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	var open []uint
	for i := 0; i < 200; i++ {
		if rng.Intn(2) == 0 {
			detail, err := loans.Create(book.ID, user.ID, 30)
			if err == nil {
				open = append(open, detail.Loan.ID)
			} else {
				assert.ErrorIs(t, err, ErrBookUnavailable)
			}
		} else if len(open) > 0 {
			idx := rng.Intn(len(open))
			_, err := loans.Return(open[idx])
			require.NoError(t, err)
			open = append(open[:idx], open[idx+1:]...)
		}

		reloaded, err := books.GetByID(book.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, reloaded.AvailableCopies, 0)
		assert.LessOrEqual(t, reloaded.AvailableCopies, total)
		assert.Equal(t, total-len(open), reloaded.AvailableCopies)
	}
	_ = db
}

func TestListLoansFilters(t *testing.T) {
	db, books, loans := setupLoanTest(t)
	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	book, err := books.Create("Refactoring", "Martin Fowler", "", 5)
	require.NoError(t, err)

	a1, err := loans.Create(book.ID, alice.ID, 30)
	require.NoError(t, err)
	_, err = loans.Create(book.ID, bob.ID, 30)
	require.NoError(t, err)
	_, err = loans.Return(a1.Loan.ID)
	require.NoError(t, err)

	details, total, err := loans.List(1, 20, alice.ID, "", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, details, 1)
	assert.Equal(t, alice.ID, details[0].Loan.UserID)

	details, total, err = loans.List(1, 20, 0, models.StatusActive, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, details, 1)
	assert.Equal(t, bob.ID, details[0].Loan.UserID)

	_, total, err = loans.List(1, 20, 0, "", book.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestRemindersDueExactDayWindow(t *testing.T) {
	db, books, loans := setupLoanTest(t)
	user := createTestUser(t, db)
	book, err := books.Create("Refactoring", "Martin Fowler", "", 5)
	require.NoError(t, err)

	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	loans.SetClock(func() time.Time { return now })

	mk := func(due time.Time) uint {
		loan := models.Loan{
			LoanUid:  uuid.New().String(),
			BookID:   book.ID,
			UserID:   user.ID,
			LoanDate: now,
			DueDate:  due,
			Status:   models.StatusActive,
		}
		require.NoError(t, db.Create(&loan).Error)
		return loan.ID
	}

	match := mk(now.Add(30*24*time.Hour + 6*time.Hour))
	mk(now.Add(29*24*time.Hour + 6*time.Hour))
	mk(now.Add(31*24*time.Hour + 6*time.Hour))

	due, err := loans.RemindersDue(30)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, match, due[0].Loan.ID)
}
