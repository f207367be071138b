package library

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RowError is a per-row import failure. Failure isolation is per row: a bad
// row is reported and the rest of the file still imports.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

func (e RowError) String() string { return fmt.Sprintf("row %d: %s", e.Row, e.Err) }

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors,omitempty"`
}

func (r *ImportReport) addError(row int, err error) {
	r.Errors = append(r.Errors, RowError{Row: row, Err: err.Error()})
}

// csvRecords reads a headered CSV into one map per row, keyed by the
// lower-cased header names.
func csvRecords(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ImportBooks upserts catalog rows. A row is matched to an existing book by
// ISBN first, else by (title, author); matches update publisher/year and
// adjust availability by the copies_total delta, floored at zero.
func (m *Manager) ImportBooks(r io.Reader) (*ImportReport, error) {
	rows, err := csvRecords(r)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	for i, row := range rows {
		rowNum := i + 1
		title := row["title"]
		if title == "" {
			report.addError(rowNum, fmt.Errorf("title is required"))
			continue
		}
		author := row["author"]
		isbn := row["isbn"]
		publisher := row["publisher"]

		var year *int
		if v := row["year"]; v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				report.addError(rowNum, fmt.Errorf("invalid year %q", v))
				continue
			}
			year = &n
		}

		copies := 1
		if v := firstNonEmpty(row["copies_total"], row["copies"]); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				report.addError(rowNum, fmt.Errorf("invalid copies_total %q", v))
				continue
			}
			copies = n
		}

		var book *Book
		if isbn != "" {
			if book, err = m.db.FindBookByISBN(isbn); err != nil {
				return nil, err
			}
		}
		if book == nil {
			if book, err = m.db.FindBookByTitleAuthor(title, author); err != nil {
				return nil, err
			}
		}

		if book != nil {
			book.Publisher = publisher
			book.Year = year
			diff := copies - book.CopiesTotal
			book.CopiesTotal = copies
			book.CopiesAvailable = book.CopiesAvailable + diff
			if book.CopiesAvailable < 0 {
				book.CopiesAvailable = 0
			}
			if err := m.db.UpdateBook(book); err != nil {
				report.addError(rowNum, err)
				continue
			}
			report.Updated++
		} else {
			book = &Book{
				Title:           title,
				Author:          author,
				ISBN:            isbn,
				Publisher:       publisher,
				Year:            year,
				CopiesTotal:     copies,
				CopiesAvailable: copies,
			}
			if _, err := m.db.AddBook(book); err != nil {
				report.addError(rowNum, err)
				continue
			}
			report.Created++
		}
	}
	return report, nil
}

// ImportBorrowers upserts member rows, matched by member_id, then phone,
// then email. Phone uniqueness is enforced against all other borrowers
// before create or update.
func (m *Manager) ImportBorrowers(r io.Reader) (*ImportReport, error) {
	rows, err := csvRecords(r)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	for i, row := range rows {
		rowNum := i + 1
		name := row["name"]
		if name == "" {
			report.addError(rowNum, fmt.Errorf("name is required"))
			continue
		}
		email := row["email"]
		phone := row["phone"]
		memberID := row["member_id"]

		var borrower *Borrower
		if memberID != "" {
			if borrower, err = m.db.FindBorrowerByMemberID(memberID); err != nil {
				return nil, err
			}
		}
		if borrower == nil && phone != "" {
			if borrower, err = m.db.FindBorrowerByPhone(phone); err != nil {
				return nil, err
			}
		}
		if borrower == nil && email != "" {
			if borrower, err = m.db.FindBorrowerByEmail(email); err != nil {
				return nil, err
			}
		}

		if borrower != nil {
			if phone != "" {
				inUse, err := m.db.PhoneInUse(phone, borrower.ID)
				if err != nil {
					return nil, err
				}
				if inUse {
					report.addError(rowNum, fmt.Errorf("phone %s already used by another borrower", phone))
					continue
				}
			}
			borrower.Name = name
			borrower.Email = email
			borrower.Phone = phone
			borrower.MemberID = memberID
			if err := m.db.UpdateBorrower(borrower); err != nil {
				report.addError(rowNum, err)
				continue
			}
			report.Updated++
		} else {
			if phone != "" {
				inUse, err := m.db.PhoneInUse(phone, 0)
				if err != nil {
					return nil, err
				}
				if inUse {
					report.addError(rowNum, fmt.Errorf("phone %s already exists", phone))
					continue
				}
			}
			borrower = &Borrower{Name: name, Email: email, Phone: phone, MemberID: memberID}
			if _, err := m.db.AddBorrower(borrower); err != nil {
				report.addError(rowNum, err)
				continue
			}
			report.Created++
		}
	}
	return report, nil
}

// ExportBooks writes the catalog as CSV ordered by title, one row per book,
// with a fixed column order.
func (m *Manager) ExportBooks(w io.Writer) error {
	books, err := m.db.SearchBooks("")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "author", "isbn", "publisher", "year", "copies_total", "copies_available"}); err != nil {
		return err
	}
	for _, b := range books {
		year := ""
		if b.Year != nil {
			year = strconv.Itoa(*b.Year)
		}
		record := []string{
			strconv.FormatInt(b.ID, 10),
			b.Title,
			b.Author,
			b.ISBN,
			b.Publisher,
			year,
			strconv.Itoa(b.CopiesTotal),
			strconv.Itoa(b.CopiesAvailable),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportBorrowers writes all borrowers as CSV ordered by name.
func (m *Manager) ExportBorrowers(w io.Writer) error {
	borrowers, err := m.db.ListBorrowers()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "email", "phone", "member_id", "created_at"}); err != nil {
		return err
	}
	for _, b := range borrowers {
		record := []string{
			strconv.FormatInt(b.ID, 10),
			b.Name,
			b.Email,
			b.Phone,
			b.MemberID,
			b.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
