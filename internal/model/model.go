package model

import "time"

// Contact is the database row for a person that a user knows. Every contact belongs to exactly one
// user through UserId.
type Contact struct {
	Id        int64     `db:"id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Email     string    `db:"email"`
	PhoneNum  string    `db:"phone_num"`
	Birthday  time.Time `db:"birthday"`
	UserId    int64     `db:"user_id"`
}

// User is the owner of contacts. Only the fields needed for owner scoping are modeled here.
type User struct {
	Id    int64  `db:"id"`
	Email string `db:"email"`
}
