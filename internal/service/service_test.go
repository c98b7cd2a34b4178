package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contacts-api/internal/auth"
	"gitlab.com/dirk.krummacker/contacts-api/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
	"gitlab.com/dirk.krummacker/contacts-api/internal/ratelimit"
	"gitlab.com/dirk.krummacker/contacts-api/internal/store"
	api "gitlab.com/dirk.krummacker/contacts-api/pkg/model"
)

var (
	dirk  = model.User{Id: 1, Email: "dirk@example.com"}
	pavla = model.User{Id: 2, Email: "pavla@example.com"}
)

// tokens resolves fixed bearer tokens to users.
type tokens map[string]model.User

func (t tokens) ResolveCurrentUser(_ context.Context, credential string) (model.User, error) {
	user, ok := t[credential]
	if !ok {
		return model.User{}, auth.ErrUnauthorized
	}
	return user, nil
}

var testTokens = tokens{"dirk-token": dirk, "pavla-token": pavla}

// today is the date the birthday window is computed for in all tests.
var today = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

// initializeContactsService sets up the contacts service with the given store and limiter and
// returns a handle to the gin engine against which requests can be executed.
func initializeContactsService(contacts store.ContactStore, limiter ratelimit.Limiter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	return SetupHttpRouter(Options{APIPrefix: "/api"}, Dependencies{
		Contacts: contacts,
		Users:    testTokens,
		Limiter:  limiter,
		Log:      logger.NewNop(),
	})
}

// unlimited is a limiter that does not get in the way of a test.
func unlimited() ratelimit.Limiter {
	return ratelimit.NewMemoryLimiter(1000, time.Second)
}

// runTest executes the HTTP request with the specified arguments and returns the response.
func runTest(router *gin.Engine, method string, url string, token string, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(method, url, strings.NewReader(body))
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	request.RemoteAddr = "192.0.2.1:1234"
	router.ServeHTTP(recorder, request)
	return recorder
}

// seed creates a contact for the user directly in the store.
func seed(t *testing.T, s store.ContactStore, user model.User, first, last, email string, birthday api.Date) model.Contact {
	contact, err := s.CreateContact(context.Background(), api.ContactBase{
		FirstName: first,
		LastName:  last,
		Email:     email,
		PhoneNum:  "+420 123 456 789",
		Birthday:  &birthday,
	}, user)
	require.NoError(t, err)
	return contact
}

func decodeContacts(t *testing.T, recorder *httptest.ResponseRecorder) []api.Contact {
	var contacts []api.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	return contacts
}

func decodeContact(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

// TestGetAll executes a GET request for all contacts. It expects that only the contacts of the
// caller are returned.
func TestGetAll(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	seed(t, s, dirk, "Aaron", "Alpha", "aaron@example.com", api.NewDate(1970, time.January, 1))
	seed(t, s, pavla, "Berta", "Beta", "berta@example.com", api.NewDate(1980, time.January, 1))
	seed(t, s, dirk, "Carla", "Gamma", "carla@example.com", api.NewDate(1990, time.January, 1))

	recorder := runTest(initializeContactsService(s, unlimited()), "GET", "/api/contacts/", "dirk-token", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	contacts := decodeContacts(t, recorder)
	assert.Equal(t, 2, len(contacts))
	assert.Equal(t, "Aaron", contacts[0].FirstName)
	assert.Equal(t, "Carla", contacts[1].FirstName)
	assert.Equal(t, api.NewDate(1990, time.January, 1), contacts[1].Birthday)
}

// TestGetAllEmpty expects an empty JSON array rather than null when the caller has no contacts.
func TestGetAllEmpty(t *testing.T) {
	recorder := runTest(initializeContactsService(store.NewMemoryContactStore(nil), unlimited()),
		"GET", "/api/contacts/", "dirk-token", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[]`, recorder.Body.String())
}

// TestGet executes a GET request for a single contact and checks the response shape.
func TestGet(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	c := seed(t, s, dirk, "Erika", "Mustermann", "erika@example.com", api.NewDate(1969, time.March, 2))

	recorder := runTest(initializeContactsService(s, unlimited()), "GET", fmt.Sprintf("/api/contacts/%d", c.Id), "dirk-token", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, fmt.Sprintf(`{
		"id": %d,
		"first_name": "Erika",
		"last_name": "Mustermann",
		"email": "erika@example.com",
		"phone_num": "+420 123 456 789",
		"birthday": "1969-03-02"
	}`, c.Id), recorder.Body.String())
}

// TestGetOtherUsersContact expects the same 404 for a contact of another user as for a contact
// that does not exist.
func TestGetOtherUsersContact(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	c := seed(t, s, dirk, "Erika", "Mustermann", "erika@example.com", api.NewDate(1969, time.March, 2))
	router := initializeContactsService(s, unlimited())

	foreign := runTest(router, "GET", fmt.Sprintf("/api/contacts/%d", c.Id), "pavla-token", "")
	missing := runTest(router, "GET", "/api/contacts/9999", "pavla-token", "")
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.JSONEq(t, `{"message": "Contact not found"}`, foreign.Body.String())
	assert.Equal(t, missing.Body.String(), foreign.Body.String())
}

// TestGetInvalidCharacterID expects that a non-numeric id is rejected before the store is asked.
func TestGetInvalidCharacterID(t *testing.T) {
	router := initializeContactsService(store.NewMemoryContactStore(nil), unlimited())
	for _, id := range []string{"INVALID", "0", "-3", "1.5"} {
		recorder := runTest(router, "GET", "/api/contacts/"+id, "dirk-token", "")
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code, id)
	}
}

// TestPost executes a POST request with a valid body. It expects the created contact with its new
// id, owned by the caller.
func TestPost(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	router := initializeContactsService(s, unlimited())

	recorder := runTest(router, "POST", "/api/contacts/", "dirk-token", `
		{
			"first_name": "Erika",
			"last_name": "Mustermann",
			"email": "erika@example.com",
			"phone_num": "+49 0815 4711",
			"birthday": "1969-03-04"
		}
	`)
	assert.Equal(t, http.StatusOK, recorder.Code)
	body := decodeContact(t, recorder)
	assert.Equal(t, 1.0, body["id"])
	assert.Equal(t, "Erika", body["first_name"])
	assert.Equal(t, "erika@example.com", body["email"])
	assert.Equal(t, "1969-03-04", body["birthday"])

	stored, found, _ := s.GetContact(context.Background(), 1, dirk)
	assert.True(t, found)
	assert.Equal(t, dirk.Id, stored.UserId)
}

// TestPostDuplicate expects that contacts with the same email can be created twice.
func TestPostDuplicate(t *testing.T) {
	router := initializeContactsService(store.NewMemoryContactStore(nil), unlimited())
	body := `{"first_name": "A", "last_name": "B", "email": "same@example.com", "phone_num": "1", "birthday": "2000-01-01"}`

	first := runTest(router, "POST", "/api/contacts/", "dirk-token", body)
	second := runTest(router, "POST", "/api/contacts/", "dirk-token", body)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.NotEqual(t, decodeContact(t, first)["id"], decodeContact(t, second)["id"])
}

// TestPostInvalidBodies executes POST requests with invalid bodies. It expects that the HTTP
// requests are all answered with 422 and that nothing is stored.
func TestPostInvalidBodies(t *testing.T) {
	invalidRequestBodies := []string{
		"",
		"not JSON",
		`{
			"first_name": "Erika"
			"last_name": "Mustermann"
		}`, // commas missing
		`{"last_name": "Mustermann", "email": "erika@example.com", "phone_num": "1", "birthday": "1969-03-02"}`,
		`{"first_name": "Erika", "last_name": "Mustermann", "email": "not an email", "phone_num": "1", "birthday": "1969-03-02"}`,
		`{"first_name": "Erika", "last_name": "Mustermann", "email": "erika@example.com", "phone_num": "1"}`,
		`{"first_name": "Erika", "last_name": "Mustermann", "email": "erika@example.com", "phone_num": "1", "birthday": "02.03.1969"}`,
	}
	s := store.NewMemoryContactStore(nil)
	router := initializeContactsService(s, unlimited())
	for _, body := range invalidRequestBodies {
		recorder := runTest(router, "POST", "/api/contacts/", "dirk-token", body)
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code, "request body: "+body)
	}
	contacts, _ := s.ListContacts(context.Background(), dirk)
	assert.Empty(t, contacts)
}

// TestPatch expects that email and phone number change while names and birthday stay as they were.
func TestPatch(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	c := seed(t, s, dirk, "Erika", "Mustermann", "erika@example.com", api.NewDate(1969, time.March, 2))

	recorder := runTest(initializeContactsService(s, unlimited()), "PATCH", fmt.Sprintf("/api/contacts/%d", c.Id), "dirk-token", `
		{
			"first_name": "Rudi",
			"last_name": "Völler",
			"email": "rudi@example.com",
			"phone_num": "+49 1234567890",
			"birthday": "1960-04-13"
		}
	`)
	assert.Equal(t, http.StatusOK, recorder.Code)
	body := decodeContact(t, recorder)
	assert.Equal(t, "Erika", body["first_name"])
	assert.Equal(t, "Mustermann", body["last_name"])
	assert.Equal(t, "rudi@example.com", body["email"])
	assert.Equal(t, "+49 1234567890", body["phone_num"])
	assert.Equal(t, "1969-03-02", body["birthday"])
}

func TestPatchNotFound(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	c := seed(t, s, dirk, "Erika", "Mustermann", "erika@example.com", api.NewDate(1969, time.March, 2))

	recorder := runTest(initializeContactsService(s, unlimited()), "PATCH", fmt.Sprintf("/api/contacts/%d", c.Id), "pavla-token",
		`{"email": "pavla@example.com", "phone_num": "1"}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	stored, _, _ := s.GetContact(context.Background(), c.Id, dirk)
	assert.Equal(t, "erika@example.com", stored.Email)
}

func TestPatchInvalidBody(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	c := seed(t, s, dirk, "Erika", "Mustermann", "erika@example.com", api.NewDate(1969, time.March, 2))

	recorder := runTest(initializeContactsService(s, unlimited()), "PATCH", fmt.Sprintf("/api/contacts/%d", c.Id), "dirk-token",
		`{"phone_num": "1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

// TestDelete expects the deleted contact in the response and a 404 for a second delete.
func TestDelete(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	c := seed(t, s, dirk, "Erika", "Mustermann", "erika@example.com", api.NewDate(1969, time.March, 2))
	router := initializeContactsService(s, unlimited())
	url := fmt.Sprintf("/api/contacts/%d", c.Id)

	foreign := runTest(router, "DELETE", url, "pavla-token", "")
	assert.Equal(t, http.StatusNotFound, foreign.Code)

	recorder := runTest(router, "DELETE", url, "dirk-token", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Erika", decodeContact(t, recorder)["first_name"])

	again := runTest(router, "DELETE", url, "dirk-token", "")
	assert.Equal(t, http.StatusNotFound, again.Code)
}

// TestBirthdays freezes today at 2024-06-01 and expects a contact born on June 5 but not one born
// on June 10.
func TestBirthdays(t *testing.T) {
	s := store.NewMemoryContactStore(func() time.Time { return today })
	seed(t, s, dirk, "Soon", "Enough", "soon@example.com", api.NewDate(2020, time.June, 5))
	seed(t, s, dirk, "Too", "Late", "late@example.com", api.NewDate(2020, time.June, 10))
	seed(t, s, pavla, "Not", "Mine", "other@example.com", api.NewDate(2020, time.June, 5))
	router := initializeContactsService(s, unlimited())

	recorder := runTest(router, "GET", "/api/contacts/birthdays/", "dirk-token", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	contacts := decodeContacts(t, recorder)
	assert.Equal(t, 1, len(contacts))
	assert.Equal(t, "Soon", contacts[0].FirstName)
}

func TestBirthdaysEmpty(t *testing.T) {
	s := store.NewMemoryContactStore(func() time.Time { return today })
	seed(t, s, dirk, "Too", "Late", "late@example.com", api.NewDate(2020, time.June, 10))

	recorder := runTest(initializeContactsService(s, unlimited()), "GET", "/api/contacts/birthdays/", "dirk-token", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[]`, recorder.Body.String())
}

// TestSearch expects a case-insensitive match on the caller's contacts only.
func TestSearch(t *testing.T) {
	s := store.NewMemoryContactStore(nil)
	seed(t, s, dirk, "John", "Smith", "john@example.com", api.NewDate(1985, time.July, 4))
	seed(t, s, dirk, "Anna", "Blacksmithova", "anna@example.com", api.NewDate(1985, time.July, 4))
	seed(t, s, dirk, "Eve", "Other", "eve.smith@example.com", api.NewDate(1985, time.July, 4))
	seed(t, s, dirk, "Karl", "Mueller", "karl@example.com", api.NewDate(1985, time.July, 4))
	seed(t, s, pavla, "Jane", "Smith", "jane@example.com", api.NewDate(1985, time.July, 4))
	router := initializeContactsService(s, unlimited())

	recorder := runTest(router, "GET", "/api/contacts/search/?query=smith", "dirk-token", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	contacts := decodeContacts(t, recorder)
	assert.Equal(t, 3, len(contacts))
	for _, c := range contacts {
		assert.NotEqual(t, "Jane", c.FirstName)
	}

	none := runTest(router, "GET", "/api/contacts/search/?query=nobody", "dirk-token", "")
	assert.Equal(t, http.StatusOK, none.Code)
	assert.JSONEq(t, `[]`, none.Body.String())
}

func TestSearchMissingQuery(t *testing.T) {
	recorder := runTest(initializeContactsService(store.NewMemoryContactStore(nil), unlimited()),
		"GET", "/api/contacts/search/", "dirk-token", "")
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

// TestUnauthorized expects every contact endpoint to refuse requests without a valid token.
func TestUnauthorized(t *testing.T) {
	router := initializeContactsService(store.NewMemoryContactStore(nil), unlimited())
	requests := [][2]string{
		{"GET", "/api/contacts/"},
		{"GET", "/api/contacts/1"},
		{"POST", "/api/contacts/"},
		{"PATCH", "/api/contacts/1"},
		{"DELETE", "/api/contacts/1"},
		{"GET", "/api/contacts/birthdays/"},
		{"GET", "/api/contacts/search/?query=a"},
	}
	for _, r := range requests {
		assert.Equal(t, http.StatusUnauthorized, runTest(router, r[0], r[1], "", "").Code, r[1])
		assert.Equal(t, http.StatusUnauthorized, runTest(router, r[0], r[1], "forged", "").Code, r[1])
	}
}

// TestRateLimit expects the third request within five seconds to be answered with 429, even
// before the credentials are checked.
func TestRateLimit(t *testing.T) {
	router := initializeContactsService(store.NewMemoryContactStore(nil), ratelimit.NewMemoryLimiter(2, 5*time.Second))

	assert.Equal(t, http.StatusOK, runTest(router, "GET", "/api/contacts/", "dirk-token", "").Code)
	assert.Equal(t, http.StatusUnauthorized, runTest(router, "GET", "/api/contacts/", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, runTest(router, "GET", "/api/contacts/", "dirk-token", "").Code)
	assert.Equal(t, http.StatusOK, runTest(router, "GET", "/api/contacts/birthdays/", "dirk-token", "").Code)
}

// forwardedGets sends count list requests from the same peer, each claiming a different client
// address in X-Forwarded-For, and returns the status codes.
func forwardedGets(router *gin.Engine, count int) []int {
	codes := make([]int, count)
	for i := range codes {
		recorder := httptest.NewRecorder()
		request, _ := http.NewRequest("GET", "/api/contacts/", nil)
		request.Header.Set("Authorization", "Bearer dirk-token")
		request.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		request.RemoteAddr = "192.0.2.1:1234"
		router.ServeHTTP(recorder, request)
		codes[i] = recorder.Code
	}
	return codes
}

// TestRateLimitIgnoresForwardedFor expects a client that rotates X-Forwarded-For to share one
// quota when no proxy is trusted.
func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	router := initializeContactsService(store.NewMemoryContactStore(nil), ratelimit.NewMemoryLimiter(2, 5*time.Second))

	codes := forwardedGets(router, 4)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

// TestRateLimitBehindTrustedProxy expects the forwarded client address to be used when the
// request comes from a trusted proxy.
func TestRateLimitBehindTrustedProxy(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	router := SetupHttpRouter(Options{APIPrefix: "/api", TrustedProxies: []string{"192.0.2.1"}}, Dependencies{
		Contacts: store.NewMemoryContactStore(nil),
		Users:    testTokens,
		Limiter:  ratelimit.NewMemoryLimiter(2, 5*time.Second),
		Log:      logger.NewNop(),
	})

	codes := forwardedGets(router, 4)
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusOK, http.StatusOK}, codes)
}

// TestHappyPath runs POST, GET list, PATCH, GET, DELETE and a final GET against one contact.
func TestHappyPath(t *testing.T) {
	router := initializeContactsService(store.NewMemoryContactStore(nil), unlimited())

	post := runTest(router, "POST", "/api/contacts/", "dirk-token", `
		{
			"first_name": "Erika",
			"last_name": "Mustermann",
			"email": "erika@example.com",
			"phone_num": "+49 0815 4711",
			"birthday": "1969-03-02"
		}
	`)
	assert.Equal(t, http.StatusOK, post.Code)
	url := fmt.Sprintf("/api/contacts/%.0f", decodeContact(t, post)["id"])

	list := runTest(router, "GET", "/api/contacts/", "dirk-token", "")
	assert.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, 1, len(decodeContacts(t, list)))

	patch := runTest(router, "PATCH", url, "dirk-token", `{"email": "erika.m@example.com", "phone_num": "+49 0815 4711"}`)
	assert.Equal(t, http.StatusOK, patch.Code)

	get := runTest(router, "GET", url, "dirk-token", "")
	assert.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "erika.m@example.com", decodeContact(t, get)["email"])

	del := runTest(router, "DELETE", url, "dirk-token", "")
	assert.Equal(t, http.StatusOK, del.Code)

	final := runTest(router, "GET", url, "dirk-token", "")
	assert.Equal(t, http.StatusNotFound, final.Code)
}

// TestRequestID expects a generated request id, or the one sent by the client.
func TestRequestID(t *testing.T) {
	router := initializeContactsService(store.NewMemoryContactStore(nil), unlimited())

	recorder := runTest(router, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, recorder.Header().Get("X-Request-Id"), 36)

	request, _ := http.NewRequest("GET", "/health", nil)
	request.Header.Set("X-Request-Id", "abc-123")
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, "abc-123", recorder.Header().Get("X-Request-Id"))
}

func TestHealthUnavailable(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	router := SetupHttpRouter(Options{}, Dependencies{
		Contacts: store.NewMemoryContactStore(nil),
		Users:    testTokens,
		Limiter:  unlimited(),
		Log:      logger.NewNop(),
		Ping:     func(context.Context) error { return errors.New("connection refused") },
	})
	recorder := runTest(router, "GET", "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

// TestCORS expects preflight requests from configured origins to be allowed.
func TestCORS(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	router := SetupHttpRouter(Options{APIPrefix: "/api", CORSOrigins: []string{"http://localhost:3000"}}, Dependencies{
		Contacts: store.NewMemoryContactStore(nil),
		Users:    testTokens,
		Limiter:  unlimited(),
		Log:      logger.NewNop(),
	})
	request, _ := http.NewRequest("OPTIONS", "/api/contacts/", nil)
	request.Header.Set("Origin", "http://localhost:3000")
	request.Header.Set("Access-Control-Request-Method", "GET")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, "http://localhost:3000", recorder.Header().Get("Access-Control-Allow-Origin"))
}

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

// newSQLStore prepares the MySQL store against the mock database.
func newSQLStore(t *testing.T, db *sqlx.DB, mock sqlmock.Sqlmock) *store.SQLContactStore {
	for i := 0; i < 6; i++ {
		mock.ExpectPrepare(".+")
	}
	s, err := store.NewSQLContactStore(context.Background(), db)
	require.NoError(t, err)
	return s
}

// TestGetWithDatabase executes a GET request through the MySQL store and checks that the query is
// scoped to the caller.
func TestGetWithDatabase(t *testing.T) {
	db, mock := createMockObjects(t)
	s := newSQLStore(t, db, mock)
	rows := mock.NewRows([]string{"id", "first_name", "last_name", "email", "phone_num", "birthday", "user_id"}).
		AddRow(29, "Erika", "Mustermann", "erika@example.com", "+49 0815 4711", time.Date(1969, time.March, 2, 0, 0, 0, 0, time.UTC), 1)
	mock.ExpectQuery("SELECT .+ FROM contacts WHERE user_id = \\? AND id = \\?").
		WithArgs(dirk.Id, int64(29)).
		WillReturnRows(rows)

	recorder := runTest(initializeContactsService(s, unlimited()), "GET", "/api/contacts/29", "dirk-token", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	body := decodeContact(t, recorder)
	assert.Equal(t, 29.0, body["id"])
	assert.Equal(t, "1969-03-02", body["birthday"])
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestDatabaseError expects a storage failure to be answered with 500 without leaking details.
func TestDatabaseError(t *testing.T) {
	db, mock := createMockObjects(t)
	s := newSQLStore(t, db, mock)
	mock.ExpectQuery("SELECT .+ FROM contacts WHERE user_id = \\?").
		WillReturnError(errors.New("connection refused"))

	recorder := runTest(initializeContactsService(s, unlimited()), "GET", "/api/contacts/", "dirk-token", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.JSONEq(t, `{"message": "internal server error"}`, recorder.Body.String())
}
