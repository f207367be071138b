package library

import "time"

// Book represents a catalog entry. Availability is tracked as a counter so
// multiple copies of the same title can circulate independently.
type Book struct {
	ID              int64     `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Author          string    `db:"author" json:"author"`
	ISBN            string    `db:"isbn" json:"isbn"`
	Publisher       string    `db:"publisher" json:"publisher"`
	Year            *int      `db:"year" json:"year,omitempty"`
	CopiesTotal     int       `db:"copies_total" json:"copies_total"`
	CopiesAvailable int       `db:"copies_available" json:"copies_available"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// IsAvailable reports whether at least one copy can be issued.
func (b *Book) IsAvailable() bool { return b.CopiesAvailable > 0 }

// Borrower is a library member profile, distinct from the login account
// (User) that may reference it.
type Borrower struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	MemberID  string    `db:"member_id" json:"member_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a login account, optionally linked to a Borrower profile.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"` // Don't serialize password hash
	Role         string `db:"role" json:"role"`
	BorrowerID   *int64 `db:"borrower_id" json:"borrower_id,omitempty"`
}

// IsAdmin reports whether the account has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Loan records a book borrowed by a borrower. ReturnDate stays nil while the
// loan is outstanding and is set exactly once on return.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	BorrowerID int64      `db:"borrower_id" json:"borrower_id"`
	IssueDate  time.Time  `db:"issue_date" json:"issue_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
}

// IsOverdue reports whether the loan is outstanding past its due date.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.ReturnDate == nil && now.After(l.DueDate)
}

// Notification statuses.
const (
	StatusSimulated     = "simulated"
	StatusInvalidNumber = "invalid-number"
)

// NotificationLog is one row per send attempt, retries included. Rows are
// immutable once written.
type NotificationLog struct {
	ID      int64     `db:"id" json:"id"`
	Phone   string    `db:"phone" json:"phone"`
	Message string    `db:"message" json:"message"`
	Event   string    `db:"event" json:"event"`
	LoanID  *int64    `db:"loan_id" json:"loan_id,omitempty"`
	Status  string    `db:"status" json:"status"`
	Error   string    `db:"error" json:"error,omitempty"`
	SentAt  time.Time `db:"sent_at" json:"sent_at"`
}

// Session is a server-side login session addressed by an opaque token.
type Session struct {
	Token     string    `db:"token" json:"token"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
