package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"library-backend/pkg/auth"
	"library-backend/pkg/models"
	"library-backend/pkg/notifications"
	"library-backend/pkg/services"
)

// Server bundles the HTTP handlers and their dependencies.
type Server struct {
	db         *gorm.DB
	users      *services.UserService
	books      *services.BookService
	loans      *services.LoanService
	stats      *services.StatsService
	dispatcher *notifications.Dispatcher
	tokens     *auth.TokenManager
}

func NewServer(
	db *gorm.DB,
	users *services.UserService,
	books *services.BookService,
	loans *services.LoanService,
	stats *services.StatsService,
	dispatcher *notifications.Dispatcher,
	tokens *auth.TokenManager,
) *Server {
	return &Server{
		db:         db,
		users:      users,
		books:      books,
		loans:      loans,
		stats:      stats,
		dispatcher: dispatcher,
		tokens:     tokens,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	api.GET("/health", s.healthCheck)

	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)
	api.GET("/auth/me", s.requireAuth(), s.currentUser)

	books := api.Group("/books", s.requireAuth())
	books.GET("", s.listBooks)
	books.GET("/:id", s.getBook)
	books.POST("", s.requireRole(models.RoleLibrarian), s.createBook)
	books.PUT("/:id", s.requireRole(models.RoleLibrarian), s.updateBook)
	books.DELETE("/:id", s.requireRole(models.RoleLibrarian), s.deleteBook)

	users := api.Group("/users", s.requireAuth(), s.requireRole(models.RoleLibrarian))
	users.GET("", s.listUsers)
	users.GET("/:id", s.getUser)
	users.POST("", s.createUser)
	users.PUT("/:id", s.updateUser)
	users.DELETE("/:id", s.deleteUser)

	loans := api.Group("/loans", s.requireAuth())
	loans.GET("", s.listLoans)
	loans.GET("/:id", s.getLoan)
	loans.POST("", s.createLoan)
	loans.PUT("/:id/return", s.returnLoan)

	dashboard := api.Group("/dashboard", s.requireAuth(), s.requireRole(models.RoleLibrarian))
	dashboard.GET("/stats", s.dashboardStats)
	dashboard.GET("/stats/monthly", s.monthlyStats)
	dashboard.GET("/stats/authors", s.popularAuthors)
	dashboard.GET("/notifications", s.pendingNotifications)

	notif := api.Group("/notifications", s.requireAuth(), s.requireRole(models.RoleLibrarian))
	notif.POST("/send-30-days", s.send30DayReminders)
	notif.POST("/send-5-days", s.send5DayReminders)
	notif.POST("/send-overdue", s.sendOverdueNotifications)
	notif.POST("/send-all", s.sendAllNotifications)

	return r
}

func (s *Server) healthCheck(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func parsePagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
