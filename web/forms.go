package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/elango738/Library-Management-System/library"
)

type registerForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required,min=6"`
	Name     string `form:"name" binding:"required"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type changePasswordForm struct {
	CurrentPassword string `form:"current_password" binding:"required"`
	NewPassword     string `form:"new_password" binding:"required"`
	ConfirmPassword string `form:"confirm_password" binding:"required"`
}

type profileForm struct {
	Name  string `form:"name" binding:"required"`
	Email string `form:"email" binding:"omitempty,email"`
	Phone string `form:"phone"`
}

type bookForm struct {
	Title       string `form:"title" binding:"required"`
	Author      string `form:"author"`
	ISBN        string `form:"isbn"`
	Publisher   string `form:"publisher"`
	Year        *int   `form:"year" binding:"omitempty,gte=0"`
	CopiesTotal int    `form:"copies_total" binding:"omitempty,gte=1"`
}

type borrowerForm struct {
	Name     string `form:"name" binding:"required"`
	Email    string `form:"email" binding:"omitempty,email"`
	Phone    string `form:"phone"`
	MemberID string `form:"member_id"`
}

type issueForm struct {
	BookID       int64 `form:"book_id" binding:"required"`
	BorrowerID   int64 `form:"borrower_id"`
	DurationDays int   `form:"duration_days" binding:"omitempty,gte=1"`
}

// badRequest renders a binding failure. Field-level validator errors are
// broken out so form clients can show per-field messages.
func badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps domain errors onto HTTP statuses per the error taxonomy:
// conflicts report the condition and change nothing, unknown errors are
// logged and hidden.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, library.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, library.ErrNoCopies),
		errors.Is(err, library.ErrAlreadyReturned),
		errors.Is(err, library.ErrPhoneInUse),
		errors.Is(err, library.ErrUsernameTaken),
		errors.Is(err, library.ErrNoBorrower):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
