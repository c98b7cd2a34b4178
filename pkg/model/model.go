// Package model holds the JSON shapes of the contacts API. Clients of the service can import it to
// talk to the REST endpoints.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. It is encoded as "YYYY-MM-DD". For decoding, a full
// RFC 3339 timestamp is accepted as well and truncated to its date.
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day of t.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// String returns the date as "YYYY-MM-DD".
func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	*d = DateOf(t)
	return nil
}

// Contact is the response body for a single contact.
type Contact struct {
	Id        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	PhoneNum  string `json:"phone_num"`
	Birthday  Date   `json:"birthday"`
}

// ContactBase is the request body for creating a contact. All fields are mandatory.
type ContactBase struct {
	FirstName string `json:"first_name" binding:"required,max=50"`
	LastName  string `json:"last_name"  binding:"required,max=50"`
	Email     string `json:"email"      binding:"required,email,max=100"`
	PhoneNum  string `json:"phone_num"  binding:"required,max=30"`
	Birthday  *Date  `json:"birthday"   binding:"required"`
}

// ContactUpdate is the request body for updating a contact. Names and birthday are accepted for
// symmetry with ContactBase, but only email and phone_num are stored.
type ContactUpdate struct {
	FirstName *string `json:"first_name,omitempty" binding:"omitempty,max=50"`
	LastName  *string `json:"last_name,omitempty"  binding:"omitempty,max=50"`
	Email     string  `json:"email"                binding:"required,email,max=100"`
	PhoneNum  string  `json:"phone_num"            binding:"required,max=30"`
	Birthday  *Date   `json:"birthday,omitempty"`
}
