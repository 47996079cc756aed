package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"library-backend/pkg/models"
	"library-backend/pkg/services"
)

const contextUserKey = "currentUser"

// requireAuth validates the bearer token and loads the principal. The
// loaded user lands in the gin context for the handlers downstream.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.userFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// requireRole gates a route to the given roles. Runs after requireAuth.
func (s *Server) requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}

// userFromRequest resolves the Authorization header to a stored user.
func (s *Server) userFromRequest(c *gin.Context) (*models.User, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("missing bearer token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

func isLibrarian(user *models.User) bool {
	return user != nil && user.Role == models.RoleLibrarian
}

// writeServiceError maps service error kinds to status codes.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already in use"})
	case errors.Is(err, services.ErrBookUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "book not available"})
	case errors.Is(err, services.ErrAlreadyReturned):
		c.JSON(http.StatusBadRequest, gin.H{"error": "book already returned"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
