package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elango738/Library-Management-System/library"
)

// NewRouter builds the full HTTP surface around an application manager
// constructed by the caller; handlers close over it instead of reaching for
// globals.
func NewRouter(mgr *library.Manager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	SetupRoutes(router, mgr)
	return router
}

// SetupRoutes registers every route on the router.
func SetupRoutes(router *gin.Engine, mgr *library.Manager) {
	router.Use(Auth(mgr))

	router.GET("/health", HealthCheck)

	// Public: browsing and account creation.
	router.GET("/books", ListBooks(mgr))
	router.POST("/register", Register(mgr))
	router.POST("/login", Login(mgr))
	router.POST("/logout", Logout(mgr))

	// Authenticated: circulation scoped to the caller.
	authed := router.Group("/", RequireUser())
	{
		authed.POST("/issue", IssueBook(mgr))
		authed.GET("/loans", ListLoans(mgr))
		authed.POST("/loans/:id/return", ReturnLoan(mgr))
		authed.POST("/loans/:id/pay_fine", PayFine(mgr))
		authed.GET("/profile", GetProfile(mgr))
		authed.POST("/profile", UpdateProfile(mgr))
		authed.POST("/password", ChangePassword(mgr))
	}

	// Admin: catalog and member management, CSV and notifications.
	admin := router.Group("/", RequireAdmin())
	{
		admin.POST("/books", AddBook(mgr))
		admin.POST("/books/:id/delete", DeleteBook(mgr))
		admin.GET("/borrowers", ListBorrowers(mgr))
		admin.POST("/borrowers", AddBorrower(mgr))
		admin.POST("/admin/import/books", ImportBooks(mgr))
		admin.GET("/admin/export/books", ExportBooks(mgr))
		admin.POST("/admin/import/borrowers", ImportBorrowers(mgr))
		admin.GET("/admin/export/borrowers", ExportBorrowers(mgr))
		admin.GET("/admin/notifications", ListNotifications(mgr))
		admin.POST("/admin/notifications/:id/retry", RetryNotification(mgr))
		admin.POST("/admin/notify/due", NotifyDue(mgr))
	}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
