package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
)

// SQLUserStore implements UserStore on the users table.
type SQLUserStore struct {
	db *sqlx.DB
}

var _ UserStore = (*SQLUserStore)(nil)

func NewSQLUserStore(db *sqlx.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

func (s *SQLUserStore) GetUser(ctx context.Context, id int64) (model.User, bool, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, "SELECT id, email FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, true, nil
}

// erDupEntry is the MySQL error number of a unique key violation.
const erDupEntry = 1062

// CreateUser registers a user with the given email. Used to seed development databases.
func (s *SQLUserStore) CreateUser(ctx context.Context, email string) (model.User, error) {
	result, err := s.db.ExecContext(ctx, "INSERT INTO users (email) VALUES (?)", email)
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry {
		return model.User{}, fmt.Errorf("insert user %s: %w", email, ErrEmailTaken)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return model.User{Id: id, Email: email}, nil
}
