package web

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elango738/Library-Management-System/library"
)

// notificationListLimit caps how many audit rows the admin view returns.
const notificationListLimit = 200

// ListBorrowers returns all member profiles ordered by name. Admin only.
func ListBorrowers(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		borrowers, err := mgr.DB().ListBorrowers()
		if err != nil {
			fail(c, err)
			return
		}
		if borrowers == nil {
			borrowers = []*library.Borrower{}
		}
		c.JSON(http.StatusOK, borrowers)
	}
}

// AddBorrower registers a member profile without a login account.
func AddBorrower(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form borrowerForm
		if err := c.ShouldBind(&form); err != nil {
			badRequest(c, err)
			return
		}
		borrower := &library.Borrower{
			Name:     form.Name,
			Email:    form.Email,
			Phone:    form.Phone,
			MemberID: form.MemberID,
		}
		id, err := mgr.DB().AddBorrower(borrower)
		if err != nil {
			fail(c, err)
			return
		}
		borrower.ID = id
		c.JSON(http.StatusCreated, borrower)
	}
}

// importUpload runs one of the CSV importers against the uploaded "file"
// part and returns the per-row report.
func importUpload(c *gin.Context, runImport func(io.Reader) (*library.ImportReport, error)) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	report, err := runImport(f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ImportBooks bulk-upserts catalog rows from an uploaded CSV.
func ImportBooks(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		importUpload(c, mgr.ImportBooks)
	}
}

// ImportBorrowers bulk-upserts member rows from an uploaded CSV.
func ImportBorrowers(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		importUpload(c, mgr.ImportBorrowers)
	}
}

func exportCSV(c *gin.Context, filename string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportBooks downloads the catalog as CSV.
func ExportBooks(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		exportCSV(c, "books.csv", func(buf *bytes.Buffer) error {
			return mgr.ExportBooks(buf)
		})
	}
}

// ExportBorrowers downloads all member profiles as CSV.
func ExportBorrowers(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		exportCSV(c, "borrowers.csv", func(buf *bytes.Buffer) error {
			return mgr.ExportBorrowers(buf)
		})
	}
}

// ListNotifications returns the most recent send attempts, newest first.
func ListNotifications(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := mgr.DB().ListNotificationLogs(notificationListLimit)
		if err != nil {
			fail(c, err)
			return
		}
		if logs == nil {
			logs = []*library.NotificationLog{}
		}
		c.JSON(http.StatusOK, logs)
	}
}

// RetryNotification re-sends a logged message. The retry gets its own audit
// row regardless of outcome.
func RetryNotification(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
			return
		}
		sent, err := mgr.Notifier().Retry(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"retried": true, "sent": sent})
	}
}

// NotifyDue runs the overdue sweep on demand, same logic as the scheduler.
func NotifyDue(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		attempted, sent, err := mgr.NotifyOverdue()
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"attempted": attempted, "sent": sent})
	}
}
