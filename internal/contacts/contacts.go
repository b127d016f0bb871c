// Package contacts is a thin store over a Google-Contacts-format CSV file:
// name in the first column, primary phone in the "Phone 1 - Value" column.
package contacts

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
)

// Column indices per the Google Contacts export layout.
const (
	colName   = 0
	colPhone1 = 18

	minDigits = 10
)

var csvHeader = []string{
	"First Name", "Middle Name", "Last Name", "Phonetic First Name",
	"Phonetic Middle Name", "Phonetic Last Name", "Name Prefix", "Name Suffix",
	"Nickname", "File As", "Organization Name", "Organization Title",
	"Organization Department", "Birthday", "Notes", "Photo", "Labels",
	"Phone 1 - Label", "Phone 1 - Value", "Phone 2 - Label", "Phone 2 - Value",
}

// Store reads and appends contacts. Writes are serialized.
type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// NewStore returns a Store backed by the CSV file at path.
func NewStore(path string, log *zap.Logger) *Store {
	return &Store{path: path, log: log.Named("contacts")}
}

// Load reads all contacts with a usable name and phone number. Rows with too
// few columns or fewer than ten digits are skipped. A missing file is an
// empty contact list, not an error.
func (s *Store) Load() ([]schemas.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("Contacts file not found", zap.String("path", s.path))
			return nil, nil
		}
		return nil, fmt.Errorf("opening contacts file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // exports vary in trailing columns
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading contacts file: %w", err)
	}

	var out []schemas.Contact
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) <= colPhone1 {
			continue
		}
		name := row[colName]
		number := schemas.NormalizeRecipient(row[colPhone1])
		if name == "" || len(number) < minDigits {
			continue
		}
		out = append(out, schemas.Contact{Name: name, Number: number})
	}
	s.log.Info("Loaded contacts", zap.Int("count", len(out)))
	return out, nil
}

// Add validates and appends one contact, creating the file with its header
// when missing. The stored number is the normalized digit string.
func (s *Store) Add(c schemas.Contact) (schemas.Contact, error) {
	c.Number = schemas.NormalizeRecipient(c.Number)
	if c.Name == "" {
		return c, fmt.Errorf("contact name cannot be empty")
	}
	if len(c.Number) < minDigits {
		return c, fmt.Errorf("phone number must contain at least %d digits", minDigits)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, statErr := os.Stat(s.path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return c, fmt.Errorf("opening contacts file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(csvHeader); err != nil {
			return c, fmt.Errorf("writing contacts header: %w", err)
		}
	}
	row := make([]string, len(csvHeader))
	row[colName] = c.Name
	row[colPhone1] = c.Number
	if err := w.Write(row); err != nil {
		return c, fmt.Errorf("writing contact: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return c, fmt.Errorf("flushing contacts file: %w", err)
	}

	s.log.Info("Added contact", zap.String("name", c.Name))
	return c, nil
}
