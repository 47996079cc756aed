package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/pkg/models"
)

func userJSON(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"userUid":    user.UserUid,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) login(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := s.users.GetByEmail(request.Email)
	if err != nil || !s.users.VerifyPassword(user, request.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userJSON(user)})
}

func (s *Server) register(c *gin.Context) {
	var request struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email and password are required"})
		return
	}

	// Only an authenticated librarian may create librarian accounts.
	if request.Role == models.RoleLibrarian {
		caller, err := s.userFromRequest(c)
		if err != nil || !isLibrarian(caller) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only librarians can create librarian accounts"})
			return
		}
	}

	user, err := s.users.Create(request.Name, request.Email, request.Password, request.Role)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": userJSON(user)})
}

func (s *Server) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, userJSON(currentUser(c)))
}
