package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"library-backend/pkg/models"
)

// StatsService composes read-only rollups over books, users and loans for
// the dashboard. It never mutates anything.
type StatsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (s *StatsService) SetClock(now func() time.Time) {
	s.now = now
}

type PopularBook struct {
	BookID    uint   `json:"book_id" gorm:"column:id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	LoanCount int64  `json:"loan_count" gorm:"column:loan_count"`
}

type RoleLoanStats struct {
	Role         string `json:"role"`
	TotalLoans   int64  `json:"total_loans" gorm:"column:total_loans"`
	ActiveLoans  int64  `json:"active_loans" gorm:"column:active_loans"`
	OverdueLoans int64  `json:"overdue_loans" gorm:"column:overdue_loans"`
}

type PopularAuthor struct {
	Author    string `json:"author"`
	LoanCount int64  `json:"loan_count" gorm:"column:loan_count"`
	BookCount int64  `json:"book_count" gorm:"column:book_count"`
}

type MonthlyStat struct {
	Month     string `json:"month"`
	LoanCount int64  `json:"loan_count"`
}

type Overview struct {
	TotalBooks      int64            `json:"total_books"`
	AvailableBooks  int64            `json:"available_books"`
	TotalUsers      int64            `json:"total_users"`
	UsersByRole     map[string]int64 `json:"users_by_role"`
	ActiveLoans     int64            `json:"active_loans"`
	ReturnedLoans   int64            `json:"returned_loans"`
	TotalLoans      int64            `json:"total_loans"`
	OverdueLoans    int64            `json:"overdue_loans"`
	OverdueRate     float64          `json:"overdue_rate"`
	UtilizationRate float64          `json:"utilization_rate"`
	PopularBooks    []PopularBook    `json:"popular_books"`
	LoansByRole     []RoleLoanStats  `json:"loans_by_role"`
}

func (s *StatsService) Overview() (*Overview, error) {
	o := &Overview{UsersByRole: map[string]int64{}}

	if err := s.db.Model(&models.Book{}).Count(&o.TotalBooks).Error; err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	err := s.db.Model(&models.Book{}).
		Where("available_copies > 0").
		Count(&o.AvailableBooks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count available books: %w", err)
	}
	if err := s.db.Model(&models.User{}).Count(&o.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var roleCounts []struct {
		Role  string
		Count int64
	}
	err = s.db.Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&roleCounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}
	for _, rc := range roleCounts {
		o.UsersByRole[rc.Role] = rc.Count
	}

	statusCount := func(status string) (int64, error) {
		var n int64
		err := s.db.Model(&models.Loan{}).Where("status = ?", status).Count(&n).Error
		return n, err
	}
	if o.ActiveLoans, err = statusCount(models.StatusActive); err != nil {
		return nil, fmt.Errorf("failed to count active loans: %w", err)
	}
	if o.ReturnedLoans, err = statusCount(models.StatusReturned); err != nil {
		return nil, fmt.Errorf("failed to count returned loans: %w", err)
	}
	if o.OverdueLoans, err = statusCount(models.StatusOverdue); err != nil {
		return nil, fmt.Errorf("failed to count overdue loans: %w", err)
	}
	o.TotalLoans = o.ActiveLoans + o.ReturnedLoans + o.OverdueLoans

	// Overdue rate is measured against the loans currently out.
	if out := o.ActiveLoans + o.OverdueLoans; out > 0 {
		o.OverdueRate = round2(float64(o.OverdueLoans) / float64(out) * 100)
	}
	if o.TotalBooks > 0 {
		loanedOut := o.TotalBooks - o.AvailableBooks
		o.UtilizationRate = round2(float64(loanedOut) / float64(o.TotalBooks) * 100)
	}

	if o.PopularBooks, err = s.PopularBooks(10); err != nil {
		return nil, err
	}
	if o.LoansByRole, err = s.LoansByRole(); err != nil {
		return nil, err
	}
	return o, nil
}

// PopularBooks ranks books by how often they have been loaned.
func (s *StatsService) PopularBooks(limit int) ([]PopularBook, error) {
	var books []PopularBook
	err := s.db.Model(&models.Book{}).
		Select("books.id, books.title, books.author, books.isbn, COUNT(loans.id) AS loan_count").
		Joins("LEFT JOIN loans ON loans.book_id = books.id").
		Group("books.id, books.title, books.author, books.isbn").
		Order("loan_count DESC").
		Limit(limit).
		Scan(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query popular books: %w", err)
	}
	return books, nil
}

// LoansByRole breaks loan counts down by the borrower's role.
func (s *StatsService) LoansByRole() ([]RoleLoanStats, error) {
	var stats []RoleLoanStats
	err := s.db.Model(&models.User{}).
		Select("users.role, COUNT(loans.id) AS total_loans, "+
			"COUNT(CASE WHEN loans.status = ? THEN 1 END) AS active_loans, "+
			"COUNT(CASE WHEN loans.status = ? THEN 1 END) AS overdue_loans",
			models.StatusActive, models.StatusOverdue).
		Joins("LEFT JOIN loans ON loans.user_id = users.id").
		Group("users.role").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query loans by role: %w", err)
	}
	return stats, nil
}

// Monthly returns loan counts per calendar month for the last N months.
// Grouping happens in Go to stay portable across postgres and sqlite.
func (s *StatsService) Monthly(months int) ([]MonthlyStat, error) {
	if months <= 0 {
		months = 12
	}
	cutoff := s.now().AddDate(0, -months, 0)

	var dates []time.Time
	err := s.db.Model(&models.Loan{}).
		Where("loan_date >= ?", cutoff).
		Pluck("loan_date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly stats: %w", err)
	}

	counts := map[string]int64{}
	for _, d := range dates {
		counts[d.Format("2006-01")]++
	}
	stats := make([]MonthlyStat, 0, len(counts))
	for month, count := range counts {
		stats = append(stats, MonthlyStat{Month: month, LoanCount: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Month > stats[j].Month
	})
	return stats, nil
}

// PopularAuthors ranks authors by loan count across their books.
func (s *StatsService) PopularAuthors(limit int) ([]PopularAuthor, error) {
	if limit <= 0 {
		limit = 10
	}
	var authors []PopularAuthor
	err := s.db.Model(&models.Book{}).
		Select("books.author, COUNT(loans.id) AS loan_count, COUNT(DISTINCT books.id) AS book_count").
		Joins("LEFT JOIN loans ON loans.book_id = books.id").
		Where("books.author <> ''").
		Group("books.author").
		Order("loan_count DESC").
		Limit(limit).
		Scan(&authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query popular authors: %w", err)
	}
	return authors, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
