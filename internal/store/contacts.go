package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
	api "gitlab.com/dirk.krummacker/contacts-api/pkg/model"
)

// SQLContactStore implements ContactStore on top of a pooled sqlx database handle. Each call
// checks a connection out of the pool for the duration of its statements only.
type SQLContactStore struct {
	db  *sqlx.DB
	now func() time.Time

	// Prepared statements offer a significant speed increase if executed many times.
	insert             *sqlx.NamedStmt
	selectByOwner      *sqlx.Stmt
	selectByIdAndOwner *sqlx.Stmt
	searchByOwner      *sqlx.Stmt
	updateByIdAndOwner *sqlx.Stmt
	deleteByIdAndOwner *sqlx.Stmt
}

var _ ContactStore = (*SQLContactStore)(nil)

// Option configures a SQLContactStore.
type Option func(*SQLContactStore)

// WithClock replaces the clock used to determine today's date for the birthday window.
func WithClock(now func() time.Time) Option {
	return func(s *SQLContactStore) {
		s.now = now
	}
}

// NewSQLContactStore prepares all statements against db. The database can be a real database for
// production use or a mock database within unit tests.
func NewSQLContactStore(ctx context.Context, db *sqlx.DB, opts ...Option) (*SQLContactStore, error) {
	s := &SQLContactStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.insert, err = db.PrepareNamedContext(ctx, `
		INSERT INTO contacts (first_name, last_name, email, phone_num, birthday, user_id)
		VALUES (:first_name, :last_name, :email, :phone_num, :birthday, :user_id)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	s.selectByOwner, err = db.PreparexContext(ctx, ownerScoped())
	if err != nil {
		return nil, fmt.Errorf("prepare select by owner: %w", err)
	}
	s.selectByIdAndOwner, err = db.PreparexContext(ctx, ownerScoped("id = ?"))
	if err != nil {
		return nil, fmt.Errorf("prepare select by id: %w", err)
	}
	s.searchByOwner, err = db.PreparexContext(ctx, ownerScoped(searchCondition))
	if err != nil {
		return nil, fmt.Errorf("prepare search: %w", err)
	}
	s.updateByIdAndOwner, err = db.PreparexContext(ctx, `
		UPDATE contacts SET email = ?, phone_num = ? WHERE user_id = ? AND id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare update: %w", err)
	}
	s.deleteByIdAndOwner, err = db.PreparexContext(ctx, `
		DELETE FROM contacts WHERE user_id = ? AND id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare delete: %w", err)
	}
	return s, nil
}

// Close releases the prepared statements. The database handle itself stays open.
func (s *SQLContactStore) Close() error {
	return errors.Join(
		s.insert.Close(),
		s.selectByOwner.Close(),
		s.selectByIdAndOwner.Close(),
		s.searchByOwner.Close(),
		s.updateByIdAndOwner.Close(),
		s.deleteByIdAndOwner.Close(),
	)
}

// ListContacts returns all contacts of the user in storage order.
func (s *SQLContactStore) ListContacts(ctx context.Context, user model.User) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := s.selectByOwner.SelectContext(ctx, &contacts, user.Id); err != nil {
		return nil, fmt.Errorf("list contacts of user %d: %w", user.Id, err)
	}
	return contacts, nil
}

// GetContact returns the contact with the given id if it belongs to the user.
func (s *SQLContactStore) GetContact(ctx context.Context, id int64, user model.User) (model.Contact, bool, error) {
	var contact model.Contact
	err := s.selectByIdAndOwner.GetContext(ctx, &contact, user.Id, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, false, nil
	}
	if err != nil {
		return model.Contact{}, false, fmt.Errorf("get contact %d: %w", id, err)
	}
	return contact, true, nil
}

// CreateContact stores a new contact for the user and returns it with its generated id. Email and
// phone number are not required to be unique.
func (s *SQLContactStore) CreateContact(ctx context.Context, data api.ContactBase, user model.User) (model.Contact, error) {
	contact := model.Contact{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		PhoneNum:  data.PhoneNum,
		UserId:    user.Id,
	}
	if data.Birthday != nil {
		contact.Birthday = data.Birthday.Time
	}
	result, err := s.insert.ExecContext(ctx, &contact)
	if err != nil {
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	contact.Id, err = result.LastInsertId()
	if err != nil {
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return contact, nil
}

// UpdateContact overwrites email and phone number of the user's contact. All other fields of data
// are ignored. Concurrent updates of the same contact are not serialized; the last write wins.
func (s *SQLContactStore) UpdateContact(ctx context.Context, id int64, data api.ContactUpdate, user model.User) (model.Contact, bool, error) {
	contact, found, err := s.GetContact(ctx, id, user)
	if err != nil || !found {
		return model.Contact{}, false, err
	}
	if _, err := s.updateByIdAndOwner.ExecContext(ctx, data.Email, data.PhoneNum, user.Id, id); err != nil {
		return model.Contact{}, false, fmt.Errorf("update contact %d: %w", id, err)
	}
	contact.Email = data.Email
	contact.PhoneNum = data.PhoneNum
	return contact, true, nil
}

// DeleteContact removes the user's contact permanently and returns its last state.
func (s *SQLContactStore) DeleteContact(ctx context.Context, id int64, user model.User) (model.Contact, bool, error) {
	contact, found, err := s.GetContact(ctx, id, user)
	if err != nil || !found {
		return model.Contact{}, false, err
	}
	if _, err := s.deleteByIdAndOwner.ExecContext(ctx, user.Id, id); err != nil {
		return model.Contact{}, false, fmt.Errorf("delete contact %d: %w", id, err)
	}
	return contact, true, nil
}

// UpcomingBirthdays returns the user's contacts whose birthday is within the next seven days,
// today included.
func (s *SQLContactStore) UpcomingBirthdays(ctx context.Context, user model.User) ([]model.Contact, error) {
	contacts, err := s.ListContacts(ctx, user)
	if err != nil {
		return nil, err
	}
	return upcomingBirthdays(contacts, s.now(), birthdayWindowDays), nil
}

// SearchContacts returns the user's contacts whose first name, last name, or email contains query,
// ignoring case.
func (s *SQLContactStore) SearchContacts(ctx context.Context, query string, user model.User) ([]model.Contact, error) {
	pattern := likePattern(query)
	contacts := []model.Contact{}
	if err := s.searchByOwner.SelectContext(ctx, &contacts, user.Id, pattern, pattern, pattern); err != nil {
		return nil, fmt.Errorf("search contacts of user %d: %w", user.Id, err)
	}
	return contacts, nil
}
