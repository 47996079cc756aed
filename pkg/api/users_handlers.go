package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/pkg/services"
)

func (s *Server) listUsers(c *gin.Context) {
	page, limit := parsePagination(c)
	role := c.Query("role")

	users, total, err := s.users.List(page, limit, role)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	items := make([]gin.H, len(users))
	for i := range users {
		items[i] = userJSON(&users[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"users": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, err := s.users.GetByID(id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	activeLoans, err := s.loans.ActiveCountForUser(id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	body := userJSON(user)
	body["active_loans"] = activeLoans
	c.JSON(http.StatusOK, body)
}

func (s *Server) createUser(c *gin.Context) {
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

	user, err := s.users.Create(request.Name, request.Email, request.Password, request.Role)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userJSON(user))
}

func (s *Server) updateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var request struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := s.users.Update(id, services.UserUpdate{
		Name:     request.Name,
		Email:    request.Email,
		Password: request.Password,
		Role:     request.Role,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.users.Delete(id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
