// Package auth resolves bearer credentials into the user on whose behalf a request runs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
	"gitlab.com/dirk.krummacker/contacts-api/internal/store"
)

// ErrUnauthorized is returned for every credential that does not identify an existing user. The
// concrete reason is wrapped for logging but never shown to the client.
var ErrUnauthorized = errors.New("could not validate credentials")

// Claims are the JWT claims of an access token. The subject carries the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Resolver validates HS256 signed access tokens and loads their user.
type Resolver struct {
	secret []byte
	users  store.UserStore
	now    func() time.Time
}

func NewResolver(secret string, users store.UserStore) *Resolver {
	return &Resolver{secret: []byte(secret), users: users, now: time.Now}
}

// IssueToken signs an access token for user that expires after ttl.
func (r *Resolver) IssueToken(user model.User, ttl time.Duration) (string, error) {
	now := r.now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.Id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// ResolveCurrentUser returns the user identified by the credential. Any problem with the token or
// an unknown user yields an error wrapping ErrUnauthorized; storage failures are returned as is.
func (r *Resolver) ResolveCurrentUser(ctx context.Context, credential string) (model.User, error) {
	if credential == "" {
		return model.User{}, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return model.User{}, fmt.Errorf("%w: invalid claims", ErrUnauthorized)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: invalid subject %q", ErrUnauthorized, claims.Subject)
	}
	user, found, err := r.users.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if !found {
		return model.User{}, fmt.Errorf("%w: unknown user %d", ErrUnauthorized, id)
	}
	return user, nil
}
