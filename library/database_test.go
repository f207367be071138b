package library

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addBook(t *testing.T, db *Database, title, author, isbn string, copies int) int64 {
	t.Helper()
	id, err := db.AddBook(&Book{
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		CopiesTotal:     copies,
		CopiesAvailable: copies,
	})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	return id
}

func addBorrower(t *testing.T, db *Database, name, phone string) int64 {
	t.Helper()
	id, err := db.AddBorrower(&Borrower{Name: name, Phone: phone})
	if err != nil {
		t.Fatalf("add borrower: %v", err)
	}
	return id
}

func TestBookCRUD(t *testing.T) {
	db := tempDB(t)
	id := addBook(t, db, "Sapiens", "Yuval Noah Harari", "9780062316097", 3)

	b, err := db.GetBook(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.CopiesAvailable != 3 || b.CopiesTotal != 3 {
		t.Fatalf("unexpected copies: %+v", b)
	}

	b.Publisher = "Harper"
	b.CopiesTotal = 5
	b.CopiesAvailable = 5
	if err := db.UpdateBook(b); err != nil {
		t.Fatalf("update: %v", err)
	}
	b, _ = db.GetBook(id)
	if b.Publisher != "Harper" || b.CopiesTotal != 5 {
		t.Fatalf("update not applied: %+v", b)
	}

	if err := db.DeleteBook(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetBook(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestSearchBooksOrderedByTitle(t *testing.T) {
	db := tempDB(t)
	addBook(t, db, "Zebra Tales", "Anon", "", 1)
	addBook(t, db, "Animal Farm", "George Orwell", "9780452284241", 1)
	addBook(t, db, "1984", "George Orwell", "9780451524935", 1)

	all, err := db.SearchBooks("")
	if err != nil {
		t.Fatalf("search all: %v", err)
	}
	if len(all) != 3 || all[0].Title != "1984" || all[2].Title != "Zebra Tales" {
		t.Fatalf("wrong order: %v", titles(all))
	}

	res, err := db.SearchBooks("orwell")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("want 2 Orwell books, got %d", len(res))
	}

	res, err = db.SearchBooks("9780451524935")
	if err != nil {
		t.Fatalf("search isbn: %v", err)
	}
	if len(res) != 1 || res[0].Title != "1984" {
		t.Fatalf("isbn search failed: %v", titles(res))
	}
}

func titles(books []*Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestIssueAndReturnFlow(t *testing.T) {
	db := tempDB(t)
	bookID := addBook(t, db, "Book", "Author", "", 2)
	borrowerID := addBorrower(t, db, "Alice", "")

	now := time.Now().UTC()
	loan, err := db.IssueLoan(bookID, borrowerID, now, now.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	b, _ := db.GetBook(bookID)
	if b.CopiesAvailable != 1 {
		t.Fatalf("want 1 available after issue, got %d", b.CopiesAvailable)
	}

	if _, err := db.ReturnLoan(loan.ID, now); err != nil {
		t.Fatalf("return: %v", err)
	}
	b, _ = db.GetBook(bookID)
	if b.CopiesAvailable != 2 {
		t.Fatalf("want 2 available after return, got %d", b.CopiesAvailable)
	}
}

func TestIssueFailsWithNoCopies(t *testing.T) {
	db := tempDB(t)
	bookID := addBook(t, db, "Rare", "Author", "", 1)
	alice := addBorrower(t, db, "Alice", "")
	bob := addBorrower(t, db, "Bob", "")

	now := time.Now().UTC()
	if _, err := db.IssueLoan(bookID, alice, now, now.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	_, err := db.IssueLoan(bookID, bob, now, now.AddDate(0, 0, 7))
	if !errors.Is(err, ErrNoCopies) {
		t.Fatalf("want ErrNoCopies, got %v", err)
	}

	// The failed issue must not create a loan or move the counter.
	loans, _ := db.ListLoans()
	if len(loans) != 1 {
		t.Fatalf("want 1 loan, got %d", len(loans))
	}
	b, _ := db.GetBook(bookID)
	if b.CopiesAvailable != 0 {
		t.Fatalf("counter moved on failed issue: %d", b.CopiesAvailable)
	}
}

func TestDoubleReturnIsRejected(t *testing.T) {
	db := tempDB(t)
	bookID := addBook(t, db, "Book", "Author", "", 1)
	borrowerID := addBorrower(t, db, "Alice", "")

	now := time.Now().UTC()
	loan, err := db.IssueLoan(bookID, borrowerID, now, now.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := db.ReturnLoan(loan.ID, now); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := db.ReturnLoan(loan.ID, now); !errors.Is(err, ErrAlreadyReturned) {
		t.Fatalf("want ErrAlreadyReturned, got %v", err)
	}

	// No double increment.
	b, _ := db.GetBook(bookID)
	if b.CopiesAvailable != 1 {
		t.Fatalf("double return incremented counter: %d", b.CopiesAvailable)
	}
}

func TestOverdueLoans(t *testing.T) {
	db := tempDB(t)
	bookID := addBook(t, db, "Book", "Author", "", 3)
	borrowerID := addBorrower(t, db, "Alice", "")

	now := time.Now().UTC()
	yesterday := now.AddDate(0, 0, -1)

	// Due yesterday, still out: overdue.
	overdueLoan, err := db.IssueLoan(bookID, borrowerID, yesterday.AddDate(0, 0, -7), yesterday)
	if err != nil {
		t.Fatalf("issue overdue: %v", err)
	}
	// Due yesterday but already returned: not overdue.
	returnedLoan, err := db.IssueLoan(bookID, borrowerID, yesterday.AddDate(0, 0, -7), yesterday)
	if err != nil {
		t.Fatalf("issue returned: %v", err)
	}
	if _, err := db.ReturnLoan(returnedLoan.ID, now); err != nil {
		t.Fatalf("return: %v", err)
	}
	// Due next week: not overdue.
	if _, err := db.IssueLoan(bookID, borrowerID, now, now.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("issue future: %v", err)
	}

	overdue, err := db.OverdueLoans(now)
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != overdueLoan.ID {
		t.Fatalf("want exactly the overdue loan, got %d rows", len(overdue))
	}
}

func TestBorrowerPhoneUniqueness(t *testing.T) {
	db := tempDB(t)
	addBorrower(t, db, "Alice", "+919876543210")

	if _, err := db.AddBorrower(&Borrower{Name: "Bob", Phone: "+919876543210"}); !errors.Is(err, ErrPhoneInUse) {
		t.Fatalf("want ErrPhoneInUse, got %v", err)
	}

	// Empty phones never conflict.
	if _, err := db.AddBorrower(&Borrower{Name: "Bob"}); err != nil {
		t.Fatalf("empty phone rejected: %v", err)
	}
	if _, err := db.AddBorrower(&Borrower{Name: "Cara"}); err != nil {
		t.Fatalf("second empty phone rejected: %v", err)
	}

	inUse, err := db.PhoneInUse("+919876543210", 0)
	if err != nil || !inUse {
		t.Fatalf("PhoneInUse = %v, %v", inUse, err)
	}
}

func TestUsersAndSessions(t *testing.T) {
	db := tempDB(t)
	id, err := db.CreateUser(&User{Username: "alice", PasswordHash: "x", Role: RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := db.CreateUser(&User{Username: "alice", PasswordHash: "y", Role: RoleUser}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("want ErrUsernameTaken, got %v", err)
	}

	if err := db.CreateSession("tok-1", id, time.Now()); err != nil {
		t.Fatalf("create session: %v", err)
	}
	u, err := db.GetSessionUser("tok-1")
	if err != nil || u.Username != "alice" {
		t.Fatalf("resolve session: %v %v", u, err)
	}
	if err := db.DeleteSession("tok-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := db.GetSessionUser("tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after logout, got %v", err)
	}
}

func TestNotificationLogListLimit(t *testing.T) {
	db := tempDB(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := db.AddNotificationLog(&NotificationLog{
			Phone:   "+919876543210",
			Message: "msg",
			Event:   EventOverdue,
			Status:  StatusSimulated,
			SentAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("add log: %v", err)
		}
	}
	logs, err := db.ListNotificationLogs(3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("want 3 rows, got %d", len(logs))
	}
	// Newest first.
	if !logs[0].SentAt.After(logs[1].SentAt) {
		t.Fatalf("rows not newest-first")
	}
}
