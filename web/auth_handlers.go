package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elango738/Library-Management-System/library"
)

// sessionMaxAge keeps the login cookie for 30 days.
const sessionMaxAge = 30 * 24 * 60 * 60

func setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(SessionCookie, token, sessionMaxAge, "/", "", false, true)
}

// Register self-registers a borrower account and logs it in.
func Register(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form registerForm
		if err := c.ShouldBind(&form); err != nil {
			badRequest(c, err)
			return
		}
		user, err := mgr.Register(form.Username, form.Password, form.Name)
		if err != nil {
			fail(c, err)
			return
		}
		token, err := mgr.StartSession(user)
		if err != nil {
			fail(c, err)
			return
		}
		setSessionCookie(c, token)
		c.JSON(http.StatusCreated, user)
	}
}

func Login(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form loginForm
		if err := c.ShouldBind(&form); err != nil {
			badRequest(c, err)
			return
		}
		user, err := mgr.Authenticate(form.Username, form.Password)
		if err != nil {
			fail(c, err)
			return
		}
		token, err := mgr.StartSession(user)
		if err != nil {
			fail(c, err)
			return
		}
		setSessionCookie(c, token)
		c.JSON(http.StatusOK, user)
	}
}

func Logout(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			_ = mgr.EndSession(token)
		}
		c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"status": "logged out"})
	}
}

func ChangePassword(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form changePasswordForm
		if err := c.ShouldBind(&form); err != nil {
			badRequest(c, err)
			return
		}
		user := CurrentUser(c)
		if err := mgr.ChangePassword(user, form.CurrentPassword, form.NewPassword, form.ConfirmPassword); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "password changed"})
	}
}

// GetProfile returns the caller's borrower record, or an empty object when
// the account has no profile yet.
func GetProfile(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user.BorrowerID == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		borrower, err := mgr.DB().GetBorrower(*user.BorrowerID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, borrower)
	}
}

// UpdateProfile edits (or creates and links) the caller's borrower record.
func UpdateProfile(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form profileForm
		if err := c.ShouldBind(&form); err != nil {
			badRequest(c, err)
			return
		}
		borrower, err := mgr.UpdateProfile(CurrentUser(c), form.Name, form.Email, form.Phone)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, borrower)
	}
}
