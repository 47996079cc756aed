package models

import (
	"time"
)

// Loan statuses.
const (
	StatusActive   = "ACTIVE"
	StatusReturned = "RETURNED"
	StatusOverdue  = "OVERDUE"
)

// User roles.
const (
	RoleLibrarian = "LIBRARIAN"
	RoleStudent   = "STUDENT"
	RoleTeacher   = "TEACHER"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	UserUid      string `gorm:"type:uuid;uniqueIndex;not null"`
	Name         string `gorm:"size:120;not null"`
	Email        string `gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:20;not null;default:'STUDENT'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Book struct {
	ID              uint   `gorm:"primaryKey"`
	BookUid         string `gorm:"type:uuid;uniqueIndex;not null"`
	Title           string `gorm:"not null"`
	Author          string `gorm:"not null"`
	ISBN            string `gorm:"size:20"`
	TotalCopies     int    `gorm:"not null"`
	AvailableCopies int    `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Available reports whether at least one copy can be loaned out.
func (b *Book) Available() bool {
	return b.AvailableCopies > 0
}

type Loan struct {
	ID         uint   `gorm:"primaryKey"`
	LoanUid    string `gorm:"type:uuid;uniqueIndex;not null"`
	BookID     uint   `gorm:"not null;index"`
	UserID     uint   `gorm:"not null;index"`
	LoanDate   time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     string `gorm:"size:20;not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Book Book `gorm:"foreignKey:BookID"`
	User User `gorm:"foreignKey:UserID"`
}

// LoanDetail is a loan joined with the book and user it references.
// All fields are always populated by the query layer.
type LoanDetail struct {
	Loan       Loan   `gorm:"embedded"`
	BookTitle  string `gorm:"column:book_title"`
	BookAuthor string `gorm:"column:book_author"`
	UserName   string `gorm:"column:user_name"`
	UserEmail  string `gorm:"column:user_email"`
}
