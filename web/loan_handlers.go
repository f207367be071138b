package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elango738/Library-Management-System/library"
)

// IssueBook lends a book. Admins may issue to any borrower via borrower_id;
// other users always issue against their own profile.
func IssueBook(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form issueForm
		if err := c.ShouldBind(&form); err != nil {
			badRequest(c, err)
			return
		}
		user := CurrentUser(c)

		borrowerID := form.BorrowerID
		if !user.IsAdmin() {
			if user.BorrowerID == nil {
				fail(c, library.ErrNoBorrower)
				return
			}
			borrowerID = *user.BorrowerID
		} else if borrowerID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "borrower_id is required"})
			return
		}

		loan, err := mgr.Issue(form.BookID, borrowerID, form.DurationDays)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, loan)
	}
}

// ListLoans returns every loan for admins and only the caller's own loans
// otherwise.
func ListLoans(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		var (
			loans []*library.Loan
			err   error
		)
		if user.IsAdmin() {
			loans, err = mgr.DB().ListLoans()
		} else if user.BorrowerID != nil {
			loans, err = mgr.DB().ListLoansByBorrower(*user.BorrowerID)
		}
		if err != nil {
			fail(c, err)
			return
		}
		if loans == nil {
			loans = []*library.Loan{}
		}
		c.JSON(http.StatusOK, loans)
	}
}

// loanForCaller loads the loan and enforces that the caller is the owning
// borrower or an admin.
func loanForCaller(c *gin.Context, mgr *library.Manager) (*library.Loan, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return nil, false
	}
	loan, err := mgr.DB().GetLoan(id)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	user := CurrentUser(c)
	if !user.IsAdmin() && (user.BorrowerID == nil || *user.BorrowerID != loan.BorrowerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return loan, true
}

// ReturnLoan closes a loan and reports the advisory fine. A repeated
// return is a conflict with no state change.
func ReturnLoan(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		loan, ok := loanForCaller(c, mgr)
		if !ok {
			return
		}
		receipt, err := mgr.Return(loan.ID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, receipt)
	}
}

// PayFine acknowledges a fine payment with a notification. No ledger row is
// written.
func PayFine(mgr *library.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		loan, ok := loanForCaller(c, mgr)
		if !ok {
			return
		}
		if err := mgr.PayFine(loan.ID); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "fine payment recorded"})
	}
}
