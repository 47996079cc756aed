package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) send30DayReminders(c *gin.Context) {
	count, err := s.dispatcher.ProcessReminders30()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d 30-day reminder(s) sent", count),
		"count":   count,
	})
}

func (s *Server) send5DayReminders(c *gin.Context) {
	count, err := s.dispatcher.ProcessReminders5()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d 5-day reminder(s) sent", count),
		"count":   count,
	})
}

func (s *Server) sendOverdueNotifications(c *gin.Context) {
	count, err := s.dispatcher.ProcessOverdue()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d overdue notification(s) sent", count),
		"count":   count,
	})
}

func (s *Server) sendAllNotifications(c *gin.Context) {
	report := s.dispatcher.ProcessAll()
	c.JSON(http.StatusOK, gin.H{
		"message": "all notifications processed",
		"results": report,
	})
}
