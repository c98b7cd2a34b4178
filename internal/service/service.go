package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contacts-api/internal/auth"
	"gitlab.com/dirk.krummacker/contacts-api/internal/config"
	"gitlab.com/dirk.krummacker/contacts-api/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
	"gitlab.com/dirk.krummacker/contacts-api/internal/ratelimit"
	"gitlab.com/dirk.krummacker/contacts-api/internal/store"
	api "gitlab.com/dirk.krummacker/contacts-api/pkg/model"
)

// notFoundMessage is returned for contacts that do not exist and for contacts of other users alike.
const notFoundMessage = "Contact not found"

// CreateDatabase opens the connection pool to the MySQL database described by cfg. Connections are
// taken from the pool per statement and given back when the statement is done.
func CreateDatabase(cfg config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Options are the router settings taken from the configuration.
type Options struct {
	APIPrefix      string
	RequestLogging bool
	CORSOrigins    []string

	// TrustedProxies may set the client address through X-Forwarded-For. The rate limit is keyed
	// by that address, so with no trusted proxies only the connection's peer address counts.
	TrustedProxies []string
}

// Dependencies are the collaborators of the HTTP layer.
type Dependencies struct {
	Contacts store.ContactStore
	Users    auth.UserResolver
	Limiter  ratelimit.Limiter
	Log      *logger.Logger

	// Ping reports whether the storage is reachable. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// handlers binds the contact endpoints to the store.
type handlers struct {
	contacts store.ContactStore
	log      *logger.Logger
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. Every contact
// endpoint is rate limited first and then requires an authenticated user.
func SetupHttpRouter(opts Options, deps Dependencies) *gin.Engine {
	log := deps.Log.With("component", "http")
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, trusting none", "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), RequestID())
	if opts.RequestLogging {
		router.Use(RequestLogger(log))
	}
	if len(opts.CORSOrigins) > 0 {
		router.Use(CORS(opts.CORSOrigins))
	}

	router.GET("/health", health(deps.Ping, log))

	h := &handlers{contacts: deps.Contacts, log: log}
	contacts := router.Group(opts.APIPrefix + "/contacts")
	contacts.Use(ratelimit.Middleware(deps.Limiter, log), auth.RequireAuth(deps.Users, log))
	contacts.GET("/", h.findContacts)
	contacts.POST("/", h.createContact)
	contacts.GET("/birthdays/", h.findUpcomingBirthdays)
	contacts.GET("/search/", h.searchContacts)
	contacts.GET("/:id", h.findContactByID)
	contacts.PATCH("/:id", h.updateContactByID)
	contacts.DELETE("/:id", h.deleteContactByID)
	return router
}

// health responds with 200 if the storage answers, and with 503 otherwise.
//
//	> curl http://localhost:8080/health
func health(ping func(ctx context.Context) error, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				log.Warn("health check failed", "error", err)
				c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// findContacts responds with all contacts of the current user.
//
//	> curl http://localhost:8080/api/contacts/ --header "Authorization: Bearer $TOKEN"
func (h *handlers) findContacts(c *gin.Context) {
	user := currentUser(c)
	contacts, err := h.contacts.ListContacts(c.Request.Context(), user)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, toResponses(contacts))
}

// findContactByID responds with the contact whose id matches the id parameter of the request URL.
//
//	> curl http://localhost:8080/api/contacts/56 --header "Authorization: Bearer $TOKEN"
func (h *handlers) findContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, found, err := h.contacts.GetContact(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": notFoundMessage})
		return
	}
	c.IndentedJSON(http.StatusOK, toResponse(contact))
}

// createContact stores the contact in the request's JSON for the current user and responds with the
// full contact including the newly assigned id.
//
//	> curl http://localhost:8080/api/contacts/ --request "POST" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"first_name": "Hans", "last_name": "Wurst", "email": "hans@example.com", "phone_num": "0815", "birthday": "1969-03-02"}'
func (h *handlers) createContact(c *gin.Context) {
	var body api.ContactBase
	if !bindJSON(c, &body) {
		return
	}
	contact, err := h.contacts.CreateContact(c.Request.Context(), body, currentUser(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, toResponse(contact))
}

// updateContactByID changes email and phone number of the contact whose id matches the id parameter
// of the request URL, and responds with the new version of the contact.
//
//	> curl http://localhost:8080/api/contacts/56 --request "PATCH" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"email": "new@example.com", "phone_num": "81970"}'
func (h *handlers) updateContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body api.ContactUpdate
	if !bindJSON(c, &body) {
		return
	}
	contact, found, err := h.contacts.UpdateContact(c.Request.Context(), id, body, currentUser(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": notFoundMessage})
		return
	}
	c.IndentedJSON(http.StatusOK, toResponse(contact))
}

// deleteContactByID deletes the contact whose id matches the id parameter of the request URL and
// responds with its last state.
//
//	> curl http://localhost:8080/api/contacts/56 --request "DELETE" --header "Authorization: Bearer $TOKEN"
func (h *handlers) deleteContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, found, err := h.contacts.DeleteContact(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": notFoundMessage})
		return
	}
	c.IndentedJSON(http.StatusOK, toResponse(contact))
}

// findUpcomingBirthdays responds with the contacts whose birthday is within the next seven days.
//
//	> curl http://localhost:8080/api/contacts/birthdays/ --header "Authorization: Bearer $TOKEN"
func (h *handlers) findUpcomingBirthdays(c *gin.Context) {
	contacts, err := h.contacts.UpcomingBirthdays(c.Request.Context(), currentUser(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, toResponses(contacts))
}

// searchContacts responds with the contacts whose first name, last name, or email contains the
// 'query' URL parameter, ignoring case. The parameter is mandatory.
//
//	> curl "http://localhost:8080/api/contacts/search/?query=smi" --header "Authorization: Bearer $TOKEN"
func (h *handlers) searchContacts(c *gin.Context) {
	query, exists := c.GetQuery("query")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": "missing query parameter"})
		return
	}
	contacts, err := h.contacts.SearchContacts(c.Request.Context(), query, currentUser(c))
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, toResponses(contacts))
}

// internalError logs err and answers with a generic 500 response.
func (h *handlers) internalError(c *gin.Context, err error) {
	h.log.Error("request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(requestIDKey),
		"error", err,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}

// currentUser returns the user that auth.RequireAuth attached to the request.
func currentUser(c *gin.Context) model.User {
	user, ok := auth.CurrentUser(c)
	if !ok {
		panic("contact endpoint registered without auth.RequireAuth")
	}
	return user
}

// parseID reads the numeric id parameter of the request URL. A malformed id is answered with 422.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// bindJSON decodes and validates the request body. A malformed or incomplete body is answered
// with 422.
func bindJSON(c *gin.Context, body interface{}) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": "invalid request body", "detail": err.Error()})
		return false
	}
	return true
}

func toResponse(c model.Contact) api.Contact {
	return api.Contact{
		Id:        c.Id,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		PhoneNum:  c.PhoneNum,
		Birthday:  api.DateOf(c.Birthday),
	}
}

func toResponses(contacts []model.Contact) []api.Contact {
	responses := make([]api.Contact, 0, len(contacts))
	for _, c := range contacts {
		responses = append(responses, toResponse(c))
	}
	return responses
}
