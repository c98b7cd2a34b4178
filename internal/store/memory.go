package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
	api "gitlab.com/dirk.krummacker/contacts-api/pkg/model"
)

// MemoryContactStore keeps contacts in process memory. It follows the same owner scoping rules as
// SQLContactStore and is used for local development without a database, and in tests.
type MemoryContactStore struct {
	now func() time.Time

	mu       sync.Mutex
	nextId   int64
	contacts []model.Contact
}

var _ ContactStore = (*MemoryContactStore)(nil)

func NewMemoryContactStore(now func() time.Time) *MemoryContactStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryContactStore{now: now, nextId: 1}
}

func (s *MemoryContactStore) ListContacts(_ context.Context, user model.User) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(c model.Contact) bool { return c.UserId == user.Id }), nil
}

func (s *MemoryContactStore) GetContact(_ context.Context, id int64, user model.User) (model.Contact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id, user)
	if i < 0 {
		return model.Contact{}, false, nil
	}
	return s.contacts[i], true, nil
}

func (s *MemoryContactStore) CreateContact(_ context.Context, data api.ContactBase, user model.User) (model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact := model.Contact{
		Id:        s.nextId,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		PhoneNum:  data.PhoneNum,
		UserId:    user.Id,
	}
	if data.Birthday != nil {
		contact.Birthday = data.Birthday.Time
	}
	s.nextId++
	s.contacts = append(s.contacts, contact)
	return contact, nil
}

func (s *MemoryContactStore) UpdateContact(_ context.Context, id int64, data api.ContactUpdate, user model.User) (model.Contact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id, user)
	if i < 0 {
		return model.Contact{}, false, nil
	}
	s.contacts[i].Email = data.Email
	s.contacts[i].PhoneNum = data.PhoneNum
	return s.contacts[i], true, nil
}

func (s *MemoryContactStore) DeleteContact(_ context.Context, id int64, user model.User) (model.Contact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id, user)
	if i < 0 {
		return model.Contact{}, false, nil
	}
	contact := s.contacts[i]
	s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
	return contact, true, nil
}

func (s *MemoryContactStore) UpcomingBirthdays(ctx context.Context, user model.User) ([]model.Contact, error) {
	contacts, err := s.ListContacts(ctx, user)
	if err != nil {
		return nil, err
	}
	return upcomingBirthdays(contacts, s.now(), birthdayWindowDays), nil
}

func (s *MemoryContactStore) SearchContacts(_ context.Context, query string, user model.User) ([]model.Contact, error) {
	query = strings.ToLower(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(c model.Contact) bool {
		return c.UserId == user.Id &&
			(strings.Contains(strings.ToLower(c.FirstName), query) ||
				strings.Contains(strings.ToLower(c.LastName), query) ||
				strings.Contains(strings.ToLower(c.Email), query))
	}), nil
}

// indexOf returns the position of the user's contact with the given id, or -1. Must be called
// with mu held.
func (s *MemoryContactStore) indexOf(id int64, user model.User) int {
	for i, c := range s.contacts {
		if c.Id == id && c.UserId == user.Id {
			return i
		}
	}
	return -1
}

// filter copies the matching contacts. Must be called with mu held.
func (s *MemoryContactStore) filter(keep func(model.Contact) bool) []model.Contact {
	result := []model.Contact{}
	for _, c := range s.contacts {
		if keep(c) {
			result = append(result, c)
		}
	}
	return result
}

// MemoryUserStore keeps users in process memory.
type MemoryUserStore struct {
	mu    sync.Mutex
	users []model.User
}

var _ UserStore = (*MemoryUserStore)(nil)

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{}
}

func (s *MemoryUserStore) GetUser(_ context.Context, id int64) (model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Id == id {
			return u, true, nil
		}
	}
	return model.User{}, false, nil
}

func (s *MemoryUserStore) CreateUser(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return model.User{}, fmt.Errorf("insert user %s: %w", email, ErrEmailTaken)
		}
	}
	user := model.User{Id: int64(len(s.users) + 1), Email: email}
	s.users = append(s.users, user)
	return user, nil
}
