package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library-backend/pkg/models"
)

// BookService owns CRUD over books and the availability ledger.
type BookService struct {
	db *gorm.DB
}

func NewBookService(db *gorm.DB) *BookService {
	return &BookService{db: db}
}

// BookUpdate is a partial update; nil fields are left untouched.
type BookUpdate struct {
	Title       *string
	Author      *string
	ISBN        *string
	TotalCopies *int
}

func (s *BookService) Create(title, author, isbn string, totalCopies int) (*models.Book, error) {
	if totalCopies < 1 {
		totalCopies = 1
	}
	book := models.Book{
		BookUid:         uuid.New().String(),
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
	}
	if err := s.db.Create(&book).Error; err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return &book, nil
}

func (s *BookService) GetByID(id uint) (*models.Book, error) {
	var book models.Book
	if err := s.db.First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	return &book, nil
}

// List returns one page of books plus the total match count. Page is
// 1-indexed; search matches title or author.
func (s *BookService) List(page, limit int, search string, availableOnly bool) ([]models.Book, int64, error) {
	page, limit = clampPage(page, limit)

	query := s.db.Model(&models.Book{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title LIKE ? OR author LIKE ?", pattern, pattern)
	}
	if availableOnly {
		query = query.Where("available_copies > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	var books []models.Book
	offset := (page - 1) * limit
	err := query.Order("title").Offset(offset).Limit(limit).Find(&books).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	return books, total, nil
}

// Update applies a partial update. Changing TotalCopies shifts
// AvailableCopies by the same delta, clamped into [0, total].
func (s *BookService) Update(id uint, upd BookUpdate) (*models.Book, error) {
	var book *models.Book
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var b models.Book
		if err := tx.First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load book: %w", err)
		}

		if upd.Title != nil {
			b.Title = *upd.Title
		}
		if upd.Author != nil {
			b.Author = *upd.Author
		}
		if upd.ISBN != nil {
			b.ISBN = *upd.ISBN
		}
		if upd.TotalCopies != nil && *upd.TotalCopies != b.TotalCopies {
			diff := *upd.TotalCopies - b.TotalCopies
			b.TotalCopies = *upd.TotalCopies
			b.AvailableCopies += diff
			if b.AvailableCopies < 0 {
				b.AvailableCopies = 0
			}
			if b.AvailableCopies > b.TotalCopies {
				b.AvailableCopies = b.TotalCopies
			}
		}

		if err := tx.Save(&b).Error; err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}
		book = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (s *BookService) Delete(id uint) error {
	result := s.db.Delete(&models.Book{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete book: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementAvailable takes one copy off the shelf. The conditional update
// serializes concurrent loans so availability never goes negative.
func (s *BookService) DecrementAvailable(tx *gorm.DB, bookID uint) error {
	result := tx.Model(&models.Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement availability: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookUnavailable
	}
	return nil
}

// IncrementAvailable puts a copy back, capped at total_copies.
func (s *BookService) IncrementAvailable(tx *gorm.DB, bookID uint) error {
	result := tx.Model(&models.Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment availability: %w", result.Error)
	}
	return nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
