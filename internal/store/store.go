// Package store persists contacts and users in MySQL. Every contact operation is scoped to the
// owning user: a contact of another user behaves exactly like a contact that does not exist.
package store

import (
	"context"
	"errors"

	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
	api "gitlab.com/dirk.krummacker/contacts-api/pkg/model"
)

// ContactStore is the repository for contacts. Operations that address a single contact report
// its absence with found == false and a nil error; an error always means the storage failed.
type ContactStore interface {
	ListContacts(ctx context.Context, user model.User) ([]model.Contact, error)
	GetContact(ctx context.Context, id int64, user model.User) (contact model.Contact, found bool, err error)
	CreateContact(ctx context.Context, data api.ContactBase, user model.User) (model.Contact, error)
	UpdateContact(ctx context.Context, id int64, data api.ContactUpdate, user model.User) (contact model.Contact, found bool, err error)
	DeleteContact(ctx context.Context, id int64, user model.User) (contact model.Contact, found bool, err error)
	UpcomingBirthdays(ctx context.Context, user model.User) ([]model.Contact, error)
	SearchContacts(ctx context.Context, query string, user model.User) ([]model.Contact, error)
}

// ErrEmailTaken is returned by CreateUser when another user already has the email.
var ErrEmailTaken = errors.New("email already registered")

// UserStore looks up the owners of contacts.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (user model.User, found bool, err error)
	CreateUser(ctx context.Context, email string) (model.User, error)
}
