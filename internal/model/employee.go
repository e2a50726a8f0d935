// Package model holds the records the API stores and returns.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted birth date format (yyyy-MM-dd).
const DateLayout = "2006-01-02"

// Date is a calendar day without time or zone. It travels as "yyyy-MM-dd"
// in JSON, in query parameters and to the database.
type Date struct {
	time.Time
}

// ParseDate parses s strictly as yyyy-MM-dd.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected yyyy-MM-dd", s)
	}
	return Date{Time: t}, nil
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("birth date must be a string in yyyy-MM-dd format")
	}
	if s == "" {
		*d = Date{}
		return nil
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalParam lets echo bind query and path parameters into a Date.
func (d *Date) UnmarshalParam(param string) error {
	parsed, err := ParseDate(param)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as yyyy-MM-dd, which both MySQL and PostgreSQL
// accept for DATE columns.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan accepts what drivers return for DATE columns: time.Time when the
// driver parses dates, text otherwise.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		return d.scanText(string(v))
	case string:
		return d.scanText(v)
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanText(s string) error {
	// Some drivers append a time part to DATE values.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Employee is one row of the employees table.
type Employee struct {
	ID        int64  `json:"id" db:"id"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	BirthDate Date   `json:"birthDate" db:"birth_date"`
	IsActive  bool   `json:"isActive" db:"is_active"`
}

func (e Employee) String() string {
	return fmt.Sprintf("Employee: ID=%d, FirstName=%s, LastName=%s, BirthDate=%s, Active=%t",
		e.ID, e.FirstName, e.LastName, e.BirthDate, e.IsActive)
}

// EmployeeList is the envelope for endpoints returning several employees.
type EmployeeList struct {
	Message string     `json:"message"`
	Filter  string     `json:"filter,omitempty"`
	Count   int        `json:"count"`
	Data    []Employee `json:"data"`
}

// EmployeeResult is the envelope for endpoints returning one employee.
type EmployeeResult struct {
	Message string    `json:"message"`
	Data    *Employee `json:"data"`
}
