package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-backend/pkg/models"
)

const loanDetailColumns = "loans.*, " +
	"books.title AS book_title, books.author AS book_author, " +
	"users.name AS user_name, users.email AS user_email"

// LoanService owns the loan lifecycle: creation, return and the
// time-driven overdue reindex. Availability changes ride in the same
// transaction as the loan row they belong to.
type LoanService struct {
	db          *gorm.DB
	books       *BookService
	now         func() time.Time
	defaultDays int
}

func NewLoanService(db *gorm.DB, books *BookService) *LoanService {
	return &LoanService{db: db, books: books, now: time.Now, defaultDays: 30}
}

// SetClock overrides the time source, for tests.
func (s *LoanService) SetClock(now func() time.Time) {
	s.now = now
}

// SetDefaultDuration sets the loan duration used when a request does not
// specify one.
func (s *LoanService) SetDefaultDuration(days int) {
	if days > 0 {
		s.defaultDays = days
	}
}

// Create loans one copy of a book to a user. The availability check,
// the decrement and the loan insert commit atomically: a book with zero
// available copies fails with ErrBookUnavailable and nothing changes.
func (s *LoanService) Create(bookID, userID uint, durationDays int) (*models.LoanDetail, error) {
	if durationDays <= 0 {
		durationDays = s.defaultDays
	}

	var loanID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load book: %w", err)
		}
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		if err := s.books.DecrementAvailable(tx, bookID); err != nil {
			return err
		}

		loanDate := s.now()
		loan := models.Loan{
			LoanUid:  uuid.New().String(),
			BookID:   bookID,
			UserID:   userID,
			LoanDate: loanDate,
			DueDate:  loanDate.AddDate(0, 0, durationDays),
			Status:   models.StatusActive,
		}
		if err := tx.Create(&loan).Error; err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}
		loanID = loan.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(loanID)
}

// Return marks a loan returned and puts the copy back on the shelf.
// The guarded update only matches an ACTIVE or OVERDUE loan, so of two
// racing returns exactly one succeeds and the other sees ErrAlreadyReturned.
func (s *LoanService) Return(loanID uint) (*models.LoanDetail, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var loan models.Loan
		if err := tx.First(&loan, loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load loan: %w", err)
		}
		if loan.Status == models.StatusReturned {
			return ErrAlreadyReturned
		}

		returnDate := s.now()
		result := tx.Model(&models.Loan{}).
			Where("id = ? AND status IN ?", loanID, []string{models.StatusActive, models.StatusOverdue}).
			Updates(map[string]interface{}{
				"return_date": returnDate,
				"status":      models.StatusReturned,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update loan: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyReturned
		}

		return s.books.IncrementAvailable(tx, loan.BookID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(loanID)
}

// ReindexOverdue flips every ACTIVE loan past its due date to OVERDUE and
// returns the number of rows changed. Idempotent: a second run on
// unchanged data affects nothing.
func (s *LoanService) ReindexOverdue() (int64, error) {
	result := s.db.Model(&models.Loan{}).
		Where("status = ? AND due_date < ?", models.StatusActive, s.now()).
		UpdateColumn("status", models.StatusOverdue)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reindex overdue loans: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *LoanService) GetByID(id uint) (*models.LoanDetail, error) {
	var detail models.LoanDetail
	err := s.detailQuery().Where("loans.id = ?", id).Take(&detail).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load loan: %w", err)
	}
	return &detail, nil
}

// List returns one page of loans, newest first, with optional filters.
// userID, status and bookID are ignored when zero-valued.
func (s *LoanService) List(page, limit int, userID uint, status string, bookID uint) ([]models.LoanDetail, int64, error) {
	page, limit = clampPage(page, limit)

	query := s.db.Model(&models.Loan{})
	if userID != 0 {
		query = query.Where("loans.user_id = ?", userID)
	}
	if status != "" {
		query = query.Where("loans.status = ?", status)
	}
	if bookID != 0 {
		query = query.Where("loans.book_id = ?", bookID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count loans: %w", err)
	}

	var details []models.LoanDetail
	offset := (page - 1) * limit
	err := query.
		Select(loanDetailColumns).
		Joins("LEFT JOIN books ON books.id = loans.book_id").
		Joins("LEFT JOIN users ON users.id = loans.user_id").
		Order("loans.loan_date DESC").
		Offset(offset).Limit(limit).
		Find(&details).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list loans: %w", err)
	}
	return details, total, nil
}

// ActiveCountForUser counts a user's currently active loans.
func (s *LoanService) ActiveCountForUser(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Loan{}).
		Where("user_id = ? AND status = ?", userID, models.StatusActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active loans: %w", err)
	}
	return count, nil
}

// RemindersDue returns the ACTIVE loans whose whole-day distance to the
// due date equals daysAhead exactly. Floor semantics: a loan is "30 days
// out" for the full day starting at now+30*24h.
func (s *LoanService) RemindersDue(daysAhead int) ([]models.LoanDetail, error) {
	now := s.now()
	from := now.Add(time.Duration(daysAhead) * 24 * time.Hour)
	to := now.Add(time.Duration(daysAhead+1) * 24 * time.Hour)

	var details []models.LoanDetail
	err := s.detailQuery().
		Where("loans.status = ? AND loans.due_date >= ? AND loans.due_date < ?",
			models.StatusActive, from, to).
		Find(&details).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	return details, nil
}

// OverdueLoans returns every loan currently marked OVERDUE.
func (s *LoanService) OverdueLoans() ([]models.LoanDetail, error) {
	var details []models.LoanDetail
	err := s.detailQuery().
		Where("loans.status = ?", models.StatusOverdue).
		Find(&details).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue loans: %w", err)
	}
	return details, nil
}

func (s *LoanService) detailQuery() *gorm.DB {
	return s.db.Model(&models.Loan{}).
		Select(loanDetailColumns).
		Joins("LEFT JOIN books ON books.id = loans.book_id").
		Joins("LEFT JOIN users ON users.id = loans.user_id")
}
