package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/pkg/models"
	"library-backend/pkg/notifications"
)

func loanJSON(detail *models.LoanDetail) gin.H {
	loan := detail.Loan
	var returnDate interface{}
	if loan.ReturnDate != nil {
		returnDate = loan.ReturnDate.Format(time.RFC3339)
	}
	return gin.H{
		"id":             loan.ID,
		"loanUid":        loan.LoanUid,
		"book_id":        loan.BookID,
		"user_id":        loan.UserID,
		"loan_date":      loan.LoanDate.Format(time.RFC3339),
		"due_date":       loan.DueDate.Format(time.RFC3339),
		"return_date":    returnDate,
		"status":         loan.Status,
		"days_remaining": notifications.DaysRemaining(loan.DueDate, time.Now()),
		"is_overdue":     notifications.IsOverdue(loan.DueDate, time.Now()),
		"book_title":     detail.BookTitle,
		"book_author":    detail.BookAuthor,
		"user_name":      detail.UserName,
		"user_email":     detail.UserEmail,
	}
}

func (s *Server) listLoans(c *gin.Context) {
	page, limit := parsePagination(c)
	status := c.Query("status")
	bookID, _ := strconv.ParseUint(c.DefaultQuery("book_id", "0"), 10, 32)

	// A non-librarian only ever sees their own loans.
	user := currentUser(c)
	var userFilter uint
	if !isLibrarian(user) {
		userFilter = user.ID
	} else {
		userID, _ := strconv.ParseUint(c.DefaultQuery("user_id", "0"), 10, 32)
		userFilter = uint(userID)
	}

	details, total, err := s.loans.List(page, limit, userFilter, status, uint(bookID))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	items := make([]gin.H, len(details))
	for i := range details {
		items[i] = loanJSON(&details[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"loans": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (s *Server) getLoan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := s.loans.GetByID(id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	user := currentUser(c)
	if !isLibrarian(user) && detail.Loan.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}
	c.JSON(http.StatusOK, loanJSON(detail))
}

func (s *Server) createLoan(c *gin.Context) {
	var request struct {
		BookID       uint `json:"book_id" binding:"required"`
		UserID       uint `json:"user_id"`
		DurationDays int  `json:"duration_days"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book_id is required"})
		return
	}

	user := currentUser(c)
	borrowerID := request.UserID
	if borrowerID == 0 {
		borrowerID = user.ID
	}
	// Only librarians may loan books out to other users.
	if borrowerID != user.ID && !isLibrarian(user) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	detail, err := s.loans.Create(request.BookID, borrowerID, request.DurationDays)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loanJSON(detail))
}

func (s *Server) returnLoan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := s.loans.GetByID(id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	user := currentUser(c)
	if !isLibrarian(user) && detail.Loan.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	returned, err := s.loans.Return(id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanJSON(returned))
}
