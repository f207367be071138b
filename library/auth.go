package library

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// Register self-registers a borrower profile with a linked user account and
// returns the new user.
func (m *Manager) Register(username, password, name string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if _, err := m.db.GetUserByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	borrowerID, err := m.db.AddBorrower(&Borrower{
		Name:     strings.TrimSpace(name),
		MemberID: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("create borrower profile: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         RoleUser,
		BorrowerID:   &borrowerID,
	}
	user.ID, err = m.db.CreateUser(user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateAdmin creates an admin account with no borrower profile.
func (m *Manager) CreateAdmin(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &User{Username: username, PasswordHash: string(hash), Role: RoleAdmin}
	user.ID, err = m.db.CreateUser(user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies credentials. A missing user and a wrong password
// are indistinguishable to the caller.
func (m *Manager) Authenticate(username, password string) (*User, error) {
	user, err := m.db.GetUserByUsername(strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// ChangePassword rotates the user's password after verifying the current
// one. The new password must be confirmed and at least 6 characters.
func (m *Manager) ChangePassword(user *User, current, newPassword, confirm string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return fmt.Errorf("current password is incorrect")
	}
	if newPassword != confirm {
		return fmt.Errorf("new password and confirmation do not match")
	}
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("new password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return m.db.UpdateUserPassword(user.ID, string(hash))
}

// UpdateProfile edits the user's borrower record, creating and linking one
// when the account has none. Phone uniqueness is enforced against all other
// borrowers.
func (m *Manager) UpdateProfile(user *User, name, email, phone string) (*Borrower, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	var borrower *Borrower
	if user.BorrowerID != nil {
		b, err := m.db.GetBorrower(*user.BorrowerID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		borrower = b
	}

	excludeID := int64(0)
	if borrower != nil {
		excludeID = borrower.ID
	}
	if phone != "" {
		inUse, err := m.db.PhoneInUse(phone, excludeID)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, ErrPhoneInUse
		}
	}

	if borrower == nil {
		borrower = &Borrower{Name: name, Email: email, Phone: phone, MemberID: uuid.NewString()}
		id, err := m.db.AddBorrower(borrower)
		if err != nil {
			return nil, err
		}
		borrower.ID = id
		if err := m.db.LinkBorrower(user.ID, id); err != nil {
			return nil, err
		}
		user.BorrowerID = &id
		return borrower, nil
	}

	borrower.Name = name
	borrower.Email = email
	borrower.Phone = phone
	if err := m.db.UpdateBorrower(borrower); err != nil {
		return nil, err
	}
	return borrower, nil
}

// ------------------ Sessions ------------------

// StartSession logs the user in and returns an opaque session token.
func (m *Manager) StartSession(user *User) (string, error) {
	token := uuid.NewString()
	if err := m.db.CreateSession(token, user.ID, time.Now()); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// ResolveSession maps a token back to its user, or ErrNotFound.
func (m *Manager) ResolveSession(token string) (*User, error) {
	return m.db.GetSessionUser(token)
}

// EndSession logs the session out. Unknown tokens are a no-op.
func (m *Manager) EndSession(token string) error {
	return m.db.DeleteSession(token)
}
