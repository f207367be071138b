package library

import (
	"fmt"
	"log/slog"
	"time"
)

// Manager is a thin façade over the Database, adding the loan lifecycle
// semantics (due dates, fines, notifications) handlers and CLI code share.
type Manager struct {
	db       *Database
	notifier *Notifier
	cfg      Config
	logger   *slog.Logger
}

// NewManager opens (or creates) the SQLite database at cfg.DBPath.
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := NewDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		db:       db,
		notifier: NewNotifier(db, logger),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error { return m.db.Close() }

// DB exposes the storage layer for queries that need no lifecycle logic.
func (m *Manager) DB() *Database { return m.db }

// Notifier exposes the dispatcher for admin retry operations.
func (m *Manager) Notifier() *Notifier { return m.notifier }

// Config returns the settings the manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// ------------------ Circulation ------------------

// Issue lends a book to a borrower for durationDays (the configured default
// when <= 0). Fails with ErrNoCopies when nothing is on the shelf; the
// borrower is notified on success, and a notification failure never fails
// the issue.
func (m *Manager) Issue(bookID, borrowerID int64, durationDays int) (*Loan, error) {
	if durationDays <= 0 {
		durationDays = m.cfg.LoanDays
	}
	now := time.Now().UTC()
	loan, err := m.db.IssueLoan(bookID, borrowerID, now, now.AddDate(0, 0, durationDays))
	if err != nil {
		return nil, err
	}

	if borrower, err := m.db.GetBorrower(borrowerID); err == nil && borrower.Phone != "" {
		book, err := m.db.GetBook(bookID)
		if err == nil {
			msg := fmt.Sprintf("Book issued: %q. Due on %s.", book.Title, loan.DueDate.Format("2006-01-02"))
			m.notifier.Send(borrower.Phone, msg, EventIssued, &loan.ID)
		}
	}
	return loan, nil
}

// ReturnReceipt reports the outcome of a return. The fine is advisory: it
// is told to the caller and the borrower but never persisted as a ledger
// entry.
type ReturnReceipt struct {
	Loan        *Loan `json:"loan"`
	OverdueDays int   `json:"overdue_days"`
	FineAmount  int   `json:"fine_amount"`
}

// Return closes the loan, puts the copy back on the shelf and computes any
// fine. Returning an already-returned loan fails with ErrAlreadyReturned
// and changes nothing.
func (m *Manager) Return(loanID int64) (*ReturnReceipt, error) {
	now := time.Now().UTC()
	loan, err := m.db.ReturnLoan(loanID, now)
	if err != nil {
		return nil, err
	}

	days := OverdueDays(loan.DueDate, now)
	receipt := &ReturnReceipt{
		Loan:        loan,
		OverdueDays: days,
		FineAmount:  days * m.cfg.FinePerDay,
	}

	if borrower, err := m.db.GetBorrower(loan.BorrowerID); err == nil && borrower.Phone != "" {
		book, err := m.db.GetBook(loan.BookID)
		if err == nil {
			var msg string
			if receipt.FineAmount > 0 {
				msg = fmt.Sprintf("Book returned: %q. Overdue by %d days. Fine due: Rs. %d. Please pay at the library.",
					book.Title, receipt.OverdueDays, receipt.FineAmount)
			} else {
				msg = fmt.Sprintf("Book returned: %q. Thank you.", book.Title)
			}
			m.notifier.Send(borrower.Phone, msg, EventReturned, &loan.ID)
		}
	}
	return receipt, nil
}

// OverdueDays counts whole calendar days between the due date and now,
// never negative. Comparison is on dates, not instants, so a loan due
// earlier today is not yet overdue.
func OverdueDays(due, now time.Time) int {
	days := int(startOfDay(now).Sub(startOfDay(due)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// Fine computes the advisory fine for a loan as of now.
func (m *Manager) Fine(loan *Loan, now time.Time) (overdueDays, fineAmount int) {
	if loan.ReturnDate != nil {
		now = *loan.ReturnDate
	}
	overdueDays = OverdueDays(loan.DueDate, now)
	return overdueDays, overdueDays * m.cfg.FinePerDay
}

// ScanOverdue returns all loans past due and not yet returned. Idempotent:
// fines are computed on demand, so re-running never double-charges.
func (m *Manager) ScanOverdue() ([]*Loan, error) {
	return m.db.OverdueLoans(time.Now().UTC())
}

// NotifyOverdue scans overdue loans and sends a reminder to every borrower
// with a phone on file. Returns how many loans were scanned and how many
// reminders were delivered. Safe to run concurrently with itself: it only
// appends audit rows.
func (m *Manager) NotifyOverdue() (attempted, sent int, err error) {
	now := time.Now().UTC()
	overdue, err := m.db.OverdueLoans(now)
	if err != nil {
		return 0, 0, fmt.Errorf("scan overdue loans: %w", err)
	}
	for _, loan := range overdue {
		borrower, err := m.db.GetBorrower(loan.BorrowerID)
		if err != nil || borrower.Phone == "" {
			continue
		}
		book, err := m.db.GetBook(loan.BookID)
		if err != nil {
			continue
		}
		days := OverdueDays(loan.DueDate, now)
		msg := fmt.Sprintf("Overdue: %q was due on %s. Overdue by %d days. Please return and pay any fines.",
			book.Title, loan.DueDate.Format("2006-01-02"), days)
		if m.notifier.Send(borrower.Phone, msg, EventOverdue, &loan.ID) {
			sent++
		}
	}
	return len(overdue), sent, nil
}

// PayFine acknowledges a fine payment. Payments are not tracked in the
// database; the borrower just gets a confirmation notification.
func (m *Manager) PayFine(loanID int64) error {
	loan, err := m.db.GetLoan(loanID)
	if err != nil {
		return err
	}
	borrower, err := m.db.GetBorrower(loan.BorrowerID)
	if err != nil {
		return err
	}
	if borrower.Phone == "" {
		return nil
	}
	book, err := m.db.GetBook(loan.BookID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Payment received for fines related to %q. Thank you.", book.Title)
	m.notifier.Send(borrower.Phone, msg, EventFinePaid, &loan.ID)
	return nil
}
