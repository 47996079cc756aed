package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/pkg/models"
	"library-backend/pkg/notifications"
)

func (s *Server) dashboardStats(c *gin.Context) {
	overview, err := s.stats.Overview()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) monthlyStats(c *gin.Context) {
	stats, err := s.stats.Monthly(12)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"monthly_stats": stats})
}

func (s *Server) popularAuthors(c *gin.Context) {
	authors, err := s.stats.PopularAuthors(10)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"popular_authors": authors})
}

// pendingNotifications lists the reminders that would fire today,
// reindexing overdue statuses first so the view is current.
func (s *Server) pendingNotifications(c *gin.Context) {
	if _, err := s.loans.ReindexOverdue(); err != nil {
		writeServiceError(c, err)
		return
	}

	reminders30, err := s.loans.RemindersDue(notifications.Threshold30)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	reminders5, err := s.loans.RemindersDue(notifications.Threshold5)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	now := time.Now()
	items := make([]gin.H, 0, len(reminders30)+len(reminders5))
	appendBatch := func(details []models.LoanDetail) {
		for i := range details {
			due := details[i].Loan.DueDate
			items = append(items, gin.H{
				"loan_id":        details[i].Loan.ID,
				"user_name":      details[i].UserName,
				"user_email":     details[i].UserEmail,
				"book_title":     details[i].BookTitle,
				"due_date":       due.Format(time.RFC3339),
				"days_remaining": notifications.DaysRemaining(due, now),
				"type":           string(notifications.Classify(due, now)),
			})
		}
	}
	appendBatch(reminders30)
	appendBatch(reminders5)

	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"total":         len(items),
	})
}
