package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elango738/Library-Management-System/library"
)

// ListBooks returns the catalog, filtered by ?q= against title, author and
// ISBN. Public: browsing needs no login.
func ListBooks(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		books, err := mgr.DB().SearchBooks(c.Query("q"))
		if err != nil {
			fail(c, err)
			return
		}
		if books == nil {
			books = []*library.Book{}
		}
		c.JSON(http.StatusOK, books)
	}
}

// AddBook creates a catalog entry. Admin only.
func AddBook(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form bookForm
		if err := c.ShouldBind(&form); err != nil {
			badRequest(c, err)
			return
		}
		copies := form.CopiesTotal
		if copies < 1 {
			copies = 1
		}
		book := &library.Book{
			Title:           form.Title,
			Author:          form.Author,
			ISBN:            form.ISBN,
			Publisher:       form.Publisher,
			Year:            form.Year,
			CopiesTotal:     copies,
			CopiesAvailable: copies,
		}
		id, err := mgr.DB().AddBook(book)
		if err != nil {
			fail(c, err)
			return
		}
		book.ID = id
		c.JSON(http.StatusCreated, book)
	}
}

// DeleteBook removes a catalog entry. Admin only.
func DeleteBook(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
			return
		}
		if err := mgr.DB().DeleteBook(id); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
