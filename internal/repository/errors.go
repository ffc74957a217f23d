// Package repository defines data access on top of GORM together with the
// error values shared by every repository. Handlers compare against these
// sentinels with errors.Is: ErrNotFound becomes a 404, ErrEmailExists a
// validation error on the email field, and ErrInUse the "category in use"
// conflict.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is the ErrConflict raised by the users email index.
var ErrEmailExists = errors.New("email already exists")

// ErrInUse is returned when a row cannot be deleted because other rows
// still reference it.
var ErrInUse = errors.New("record in use")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

// translate maps driver and GORM errors onto the sentinels above.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return ErrConflict
		case mysqlRowIsReferenced:
			return ErrInUse
		}
		return err
	}
	// sqlite reports constraint failures only through the message text
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrConflict
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ErrInUse
	}
	return err
}
