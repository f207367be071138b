package library

import (
	"fmt"
	"log/slog"
	"regexp"
)

// Notification events.
const (
	EventIssued   = "issued"
	EventReturned = "returned"
	EventOverdue  = "overdue"
	EventFinePaid = "fine_paid"
	EventRetry    = "retry"
)

// Only Indian mobile numbers are accepted: 10 digits starting with 6-9,
// optionally prefixed with +91, 91 or a leading zero. This is a simulation
// boundary, not a general phone validator.
var mobilePattern = regexp.MustCompile(`^(?:\+91|91|0)?([6-9][0-9]{9})$`)

var nonDialRunes = regexp.MustCompile(`[^0-9+]`)

// NormalizePhone strips separators and returns the canonical +91XXXXXXXXXX
// form, or ok=false when the number is not an accepted mobile number.
func NormalizePhone(raw string) (normalized string, ok bool) {
	if raw == "" {
		return "", false
	}
	cleaned := nonDialRunes.ReplaceAllString(raw, "")
	m := mobilePattern.FindStringSubmatch(cleaned)
	if m == nil {
		return "", false
	}
	return "+91" + m[1], true
}

// Notifier simulates an SMS gateway. Every send attempt, valid or not,
// leaves exactly one NotificationLog row. There is no real transport: a
// successful send is emitted to the log sink and recorded as "simulated".
type Notifier struct {
	db     *Database
	logger *slog.Logger
}

func NewNotifier(db *Database, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{db: db, logger: logger}
}

// Send normalizes phone and records the attempt. It reports whether the
// simulated delivery succeeded; storage errors are logged, never returned,
// because notification failures must not fail the triggering operation.
func (n *Notifier) Send(phone, message, event string, loanID *int64) bool {
	normalized, ok := NormalizePhone(phone)
	if !ok {
		entry := &NotificationLog{
			Phone:   phone,
			Message: message,
			Event:   event,
			LoanID:  loanID,
			Status:  StatusInvalidNumber,
			Error:   "not an accepted mobile number",
		}
		if _, err := n.db.AddNotificationLog(entry); err != nil {
			n.logger.Error("record failed notification", "phone", phone, "error", err)
		}
		return false
	}

	n.logger.Info("sms simulated", "to", normalized, "event", event, "message", message)
	entry := &NotificationLog{
		Phone:   normalized,
		Message: message,
		Event:   event,
		LoanID:  loanID,
		Status:  StatusSimulated,
	}
	if _, err := n.db.AddNotificationLog(entry); err != nil {
		n.logger.Error("record notification", "phone", normalized, "error", err)
	}
	return true
}

// Retry re-sends the phone/message/event recorded in an earlier log row.
// Each retry is its own audit record; the original row is never touched.
func (n *Notifier) Retry(logID int64) (bool, error) {
	entry, err := n.db.GetNotificationLog(logID)
	if err != nil {
		return false, fmt.Errorf("load notification %d: %w", logID, err)
	}
	event := entry.Event
	if event == "" {
		event = EventRetry
	}
	return n.Send(entry.Phone, entry.Message, event, entry.LoanID), nil
}
