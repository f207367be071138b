package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var dialect = goqu.Dialect("sqlite3")

// Database provides high-level helpers around a SQLite connection.
type Database struct {
	db *sqlx.DB

	addBookStmt         *sqlx.Stmt
	addNotificationStmt *sqlx.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBookStmt != nil {
		d.addBookStmt.Close()
	}
	if d.addNotificationStmt != nil {
		d.addNotificationStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            isbn TEXT NOT NULL DEFAULT '',
            publisher TEXT NOT NULL DEFAULT '',
            year INTEGER,
            copies_total INTEGER NOT NULL DEFAULT 1,
            copies_available INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CHECK (copies_available >= 0 AND copies_available <= copies_total)
        );`,
		`CREATE TABLE IF NOT EXISTS borrowers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            member_id TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		// Phone is unique only when present; empty means "no phone on file".
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_borrowers_phone ON borrowers(phone) WHERE phone <> '';`,
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'user',
            borrower_id INTEGER REFERENCES borrowers(id)
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id),
            borrower_id INTEGER NOT NULL REFERENCES borrowers(id),
            issue_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_outstanding ON loans(due_date) WHERE return_date IS NULL;`,
		`CREATE TABLE IF NOT EXISTS notification_logs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            phone TEXT NOT NULL,
            message TEXT NOT NULL,
            event TEXT NOT NULL DEFAULT '',
            loan_id INTEGER REFERENCES loans(id),
            status TEXT NOT NULL,
            error TEXT NOT NULL DEFAULT '',
            sent_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sessions (
            token TEXT PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id),
            created_at DATETIME NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBookStmt, err = d.db.Preparex(
		`INSERT INTO books(title,author,isbn,publisher,year,copies_total,copies_available,created_at)
         VALUES(?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	if d.addNotificationStmt, err = d.db.Preparex(
		`INSERT INTO notification_logs(phone,message,event,loan_id,status,error,sent_at)
         VALUES(?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// notFound maps the driver's no-rows error onto the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

const bookColumns = `id,title,author,isbn,publisher,year,copies_total,copies_available,created_at`

// AddBook inserts a new catalog entry and returns its ID.
func (d *Database) AddBook(b *Book) (int64, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := d.addBookStmt.Exec(b.Title, b.Author, b.ISBN, b.Publisher, b.Year,
		b.CopiesTotal, b.CopiesAvailable, b.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("add book: %w", err)
	}
	return res.LastInsertId()
}

func (d *Database) GetBook(id int64) (*Book, error) {
	var b Book
	if err := d.db.Get(&b, `SELECT `+bookColumns+` FROM books WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// SearchBooks returns books matching q against title, author or ISBN,
// ordered by title. An empty q lists the whole catalog.
func (d *Database) SearchBooks(q string) ([]*Book, error) {
	ds := dialect.From("books").
		Select("id", "title", "author", "isbn", "publisher", "year",
			"copies_total", "copies_available", "created_at").
		Order(goqu.I("title").Asc())
	if q = strings.TrimSpace(q); q != "" {
		pat := "%" + q + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("title").Like(pat),
			goqu.I("author").Like(pat),
			goqu.I("isbn").Like(pat),
		))
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}
	var books []*Book
	if err := d.db.Select(&books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

// FindBookByISBN returns (nil, nil) when no book matches.
func (d *Database) FindBookByISBN(isbn string) (*Book, error) {
	var b Book
	err := d.db.Get(&b, `SELECT `+bookColumns+` FROM books WHERE isbn=?`, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindBookByTitleAuthor returns (nil, nil) when no book matches.
func (d *Database) FindBookByTitleAuthor(title, author string) (*Book, error) {
	var b Book
	err := d.db.Get(&b, `SELECT `+bookColumns+` FROM books WHERE title=? AND author=?`, title, author)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBook rewrites all mutable columns of the book.
func (d *Database) UpdateBook(b *Book) error {
	res, err := d.db.Exec(
		`UPDATE books SET title=?, author=?, isbn=?, publisher=?, year=?,
            copies_total=?, copies_available=? WHERE id=?`,
		b.Title, b.Author, b.ISBN, b.Publisher, b.Year,
		b.CopiesTotal, b.CopiesAvailable, b.ID)
	if err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) DeleteBook(id int64) error {
	res, err := d.db.Exec(`DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Borrowers
// ---------------------------------------------------------------------------

const borrowerColumns = `id,name,email,phone,member_id,created_at`

func (d *Database) AddBorrower(b *Borrower) (int64, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := d.db.Exec(
		`INSERT INTO borrowers(name,email,phone,member_id,created_at) VALUES(?,?,?,?,?)`,
		b.Name, b.Email, b.Phone, b.MemberID, b.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "idx_borrowers_phone") {
			return 0, ErrPhoneInUse
		}
		return 0, fmt.Errorf("add borrower: %w", err)
	}
	return res.LastInsertId()
}

func (d *Database) GetBorrower(id int64) (*Borrower, error) {
	var b Borrower
	if err := d.db.Get(&b, `SELECT `+borrowerColumns+` FROM borrowers WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// ListBorrowers returns all borrowers ordered by name.
func (d *Database) ListBorrowers() ([]*Borrower, error) {
	var borrowers []*Borrower
	if err := d.db.Select(&borrowers,
		`SELECT `+borrowerColumns+` FROM borrowers ORDER BY name`); err != nil {
		return nil, err
	}
	return borrowers, nil
}

func (d *Database) UpdateBorrower(b *Borrower) error {
	res, err := d.db.Exec(
		`UPDATE borrowers SET name=?, email=?, phone=?, member_id=? WHERE id=?`,
		b.Name, b.Email, b.Phone, b.MemberID, b.ID)
	if err != nil {
		if strings.Contains(err.Error(), "idx_borrowers_phone") {
			return ErrPhoneInUse
		}
		return fmt.Errorf("update borrower %d: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// findBorrowerBy returns (nil, nil) when no borrower matches the column.
func (d *Database) findBorrowerBy(column, value string) (*Borrower, error) {
	var b Borrower
	err := d.db.Get(&b,
		`SELECT `+borrowerColumns+` FROM borrowers WHERE `+column+`=?`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *Database) FindBorrowerByMemberID(memberID string) (*Borrower, error) {
	return d.findBorrowerBy("member_id", memberID)
}

func (d *Database) FindBorrowerByPhone(phone string) (*Borrower, error) {
	return d.findBorrowerBy("phone", phone)
}

func (d *Database) FindBorrowerByEmail(email string) (*Borrower, error) {
	return d.findBorrowerBy("email", email)
}

// PhoneInUse reports whether any borrower other than excludeID already has
// the phone number on file.
func (d *Database) PhoneInUse(phone string, excludeID int64) (bool, error) {
	if phone == "" {
		return false, nil
	}
	var exists bool
	err := d.db.Get(&exists,
		`SELECT EXISTS(SELECT 1 FROM borrowers WHERE phone=? AND id != ?)`, phone, excludeID)
	return exists, err
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (d *Database) CreateUser(u *User) (int64, error) {
	res, err := d.db.Exec(
		`INSERT INTO users(username,password_hash,role,borrower_id) VALUES(?,?,?,?)`,
		u.Username, u.PasswordHash, u.Role, u.BorrowerID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

func (d *Database) GetUser(id int64) (*User, error) {
	var u User
	if err := d.db.Get(&u,
		`SELECT id,username,password_hash,role,borrower_id FROM users WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (d *Database) GetUserByUsername(username string) (*User, error) {
	var u User
	if err := d.db.Get(&u,
		`SELECT id,username,password_hash,role,borrower_id FROM users WHERE username=?`, username); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (d *Database) UpdateUserPassword(id int64, hash string) error {
	_, err := d.db.Exec(`UPDATE users SET password_hash=? WHERE id=?`, hash, id)
	return err
}

// LinkBorrower attaches a borrower profile to a user account.
func (d *Database) LinkBorrower(userID, borrowerID int64) error {
	_, err := d.db.Exec(`UPDATE users SET borrower_id=? WHERE id=?`, borrowerID, userID)
	return err
}

func (d *Database) CountAdmins() (int, error) {
	var n int
	err := d.db.Get(&n, `SELECT COUNT(*) FROM users WHERE role=?`, RoleAdmin)
	return n, err
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

const loanColumns = `id,book_id,borrower_id,issue_date,due_date,return_date`

// IssueLoan records the loan and decrements availability in one transaction.
func (d *Database) IssueLoan(bookID, borrowerID int64, issuedAt, dueAt time.Time) (*Loan, error) {
	tx, err := d.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var avail int
	if err := tx.Get(&avail, `SELECT copies_available FROM books WHERE id=?`, bookID); err != nil {
		return nil, notFound(err)
	}
	if avail < 1 {
		return nil, ErrNoCopies
	}

	var exists bool
	if err := tx.Get(&exists, `SELECT EXISTS(SELECT 1 FROM borrowers WHERE id=?)`, borrowerID); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	issuedAt, dueAt = issuedAt.UTC(), dueAt.UTC()
	res, err := tx.Exec(
		`INSERT INTO loans(book_id,borrower_id,issue_date,due_date) VALUES(?,?,?,?)`,
		bookID, borrowerID, issuedAt, dueAt)
	if err != nil {
		return nil, err
	}
	loanID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(
		`UPDATE books SET copies_available = copies_available - 1 WHERE id=?`, bookID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Loan{
		ID:         loanID,
		BookID:     bookID,
		BorrowerID: borrowerID,
		IssueDate:  issuedAt,
		DueDate:    dueAt,
	}, nil
}

// ReturnLoan marks the loan returned and increments availability in one
// transaction. A second return of the same loan fails with
// ErrAlreadyReturned and changes nothing.
func (d *Database) ReturnLoan(loanID int64, at time.Time) (*Loan, error) {
	tx, err := d.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var l Loan
	if err := tx.Get(&l, `SELECT `+loanColumns+` FROM loans WHERE id=?`, loanID); err != nil {
		return nil, notFound(err)
	}
	if l.ReturnDate != nil {
		return nil, ErrAlreadyReturned
	}

	at = at.UTC()
	if _, err := tx.Exec(`UPDATE loans SET return_date=? WHERE id=?`, at, loanID); err != nil {
		return nil, err
	}
	// The MIN guard keeps copies_available within copies_total even if the
	// catalog shrank while the loan was out.
	if _, err := tx.Exec(
		`UPDATE books SET copies_available = MIN(copies_available + 1, copies_total) WHERE id=?`,
		l.BookID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	l.ReturnDate = &at
	return &l, nil
}

func (d *Database) GetLoan(id int64) (*Loan, error) {
	var l Loan
	if err := d.db.Get(&l, `SELECT `+loanColumns+` FROM loans WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// ListLoans returns all loans, most recently issued first.
func (d *Database) ListLoans() ([]*Loan, error) {
	var loans []*Loan
	if err := d.db.Select(&loans,
		`SELECT `+loanColumns+` FROM loans ORDER BY issue_date DESC, id DESC`); err != nil {
		return nil, err
	}
	return loans, nil
}

// ListLoansByBorrower returns the borrower's loans, most recent first.
func (d *Database) ListLoansByBorrower(borrowerID int64) ([]*Loan, error) {
	var loans []*Loan
	if err := d.db.Select(&loans,
		`SELECT `+loanColumns+` FROM loans WHERE borrower_id=? ORDER BY issue_date DESC, id DESC`,
		borrowerID); err != nil {
		return nil, err
	}
	return loans, nil
}

// OverdueLoans returns loans past due and not yet returned as of now.
func (d *Database) OverdueLoans(now time.Time) ([]*Loan, error) {
	var loans []*Loan
	if err := d.db.Select(&loans,
		`SELECT `+loanColumns+` FROM loans WHERE due_date < ? AND return_date IS NULL ORDER BY due_date`,
		now.UTC()); err != nil {
		return nil, err
	}
	return loans, nil
}

// ---------------------------------------------------------------------------
// Notification logs
// ---------------------------------------------------------------------------

func (d *Database) AddNotificationLog(n *NotificationLog) (int64, error) {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	res, err := d.addNotificationStmt.Exec(
		n.Phone, n.Message, n.Event, n.LoanID, n.Status, n.Error, n.SentAt)
	if err != nil {
		return 0, fmt.Errorf("add notification log: %w", err)
	}
	return res.LastInsertId()
}

func (d *Database) GetNotificationLog(id int64) (*NotificationLog, error) {
	var n NotificationLog
	if err := d.db.Get(&n,
		`SELECT id,phone,message,event,loan_id,status,error,sent_at
         FROM notification_logs WHERE id=?`, id); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// ListNotificationLogs returns the most recent limit rows, newest first.
func (d *Database) ListNotificationLogs(limit int) ([]*NotificationLog, error) {
	var logs []*NotificationLog
	if err := d.db.Select(&logs,
		`SELECT id,phone,message,event,loan_id,status,error,sent_at
         FROM notification_logs ORDER BY sent_at DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, err
	}
	return logs, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (d *Database) CreateSession(token string, userID int64, at time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO sessions(token,user_id,created_at) VALUES(?,?,?)`,
		token, userID, at.UTC())
	return err
}

// GetSessionUser resolves a session token to its user account.
func (d *Database) GetSessionUser(token string) (*User, error) {
	var u User
	if err := d.db.Get(&u,
		`SELECT u.id,u.username,u.password_hash,u.role,u.borrower_id
         FROM sessions s JOIN users u ON u.id = s.user_id WHERE s.token=?`, token); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (d *Database) DeleteSession(token string) error {
	_, err := d.db.Exec(`DELETE FROM sessions WHERE token=?`, token)
	return err
}
