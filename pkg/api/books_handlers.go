package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/pkg/models"
	"library-backend/pkg/services"
)

func bookJSON(book *models.Book) gin.H {
	return gin.H{
		"id":               book.ID,
		"bookUid":          book.BookUid,
		"title":            book.Title,
		"author":           book.Author,
		"isbn":             book.ISBN,
		"total_copies":     book.TotalCopies,
		"available_copies": book.AvailableCopies,
		"available":        book.Available(),
	}
}

func (s *Server) listBooks(c *gin.Context) {
	page, limit := parsePagination(c)
	search := c.Query("search")
	availableOnly := c.DefaultQuery("available", "false") == "true"

	books, total, err := s.books.List(page, limit, search, availableOnly)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	items := make([]gin.H, len(books))
	for i := range books {
		items[i] = bookJSON(&books[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"books": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (s *Server) getBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	book, err := s.books.GetByID(id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookJSON(book))
}

func (s *Server) createBook(c *gin.Context) {
	var request struct {
		Title       string `json:"title" binding:"required"`
		Author      string `json:"author" binding:"required"`
		ISBN        string `json:"isbn"`
		TotalCopies int    `json:"total_copies"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and author are required"})
		return
	}
	if request.TotalCopies < 1 {
		request.TotalCopies = 1
	}

	book, err := s.books.Create(request.Title, request.Author, request.ISBN, request.TotalCopies)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookJSON(book))
}

func (s *Server) updateBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var request struct {
		Title       *string `json:"title"`
		Author      *string `json:"author"`
		ISBN        *string `json:"isbn"`
		TotalCopies *int    `json:"total_copies"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	book, err := s.books.Update(id, services.BookUpdate{
		Title:       request.Title,
		Author:      request.Author,
		ISBN:        request.ISBN,
		TotalCopies: request.TotalCopies,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookJSON(book))
}

func (s *Server) deleteBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.books.Delete(id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book deleted"})
}
