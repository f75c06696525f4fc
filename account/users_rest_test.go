package account_test

import (
	"bytes"
	"errors"
	"fixflow/account"
	"fixflow/bizerror"
	"fixflow/session"
	"fixflow/testinfra"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(bizerror.ErrorHandling())
	account.RegisterUsersRestAPI(router)
	return router
}

func TestUsersRestAPI(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should list users without secrets", func(t *testing.T) {
		router := buildRouter()
		account.QueryUsersFunc = func(sec *session.Session) ([]account.UserInfo, error) {
			return []account.UserInfo{
				{ID: 1, Name: "boss", Role: session.RoleAdmin},
				{ID: 2, Name: "ann", Role: session.RoleDeveloper},
			}, nil
		}
		defer func() { account.QueryUsersFunc = account.QueryUsers }()

		req := httptest.NewRequest(http.MethodGet, account.PathUsers, nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`[{"id":"1","name":"boss","role":"Admin"},
			{"id":"2","name":"ann","role":"Developer"}]`))
	})

	t.Run("should create a user and answer 201", func(t *testing.T) {
		router := buildRouter()
		var received *account.UserCreation
		account.CreateUserFunc = func(c *account.UserCreation, sec *session.Session) (*account.UserInfo, error) {
			received = c
			return &account.UserInfo{ID: 3, Name: c.Name, Role: c.Role}, nil
		}
		defer func() { account.CreateUserFunc = account.CreateUser }()

		req := httptest.NewRequest(http.MethodPost, account.PathUsers, bytes.NewReader([]byte(
			`{"name":"ann","password":"s3cret","role":"Developer"}`)))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusCreated))
		Expect(received.Secret).To(Equal("s3cret"))
		Expect(body).To(MatchJSON(`{"id":"3","name":"ann","role":"Developer"}`))
	})

	t.Run("should reject a creation without password", func(t *testing.T) {
		router := buildRouter()

		req := httptest.NewRequest(http.MethodPost, account.PathUsers, bytes.NewReader([]byte(
			`{"name":"ann","role":"Developer"}`)))
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	t.Run("should map update and delete onto 204", func(t *testing.T) {
		router := buildRouter()
		var updatedId, deletedId types.ID
		account.UpdateUserFunc = func(id types.ID, u *account.UserUpdating, sec *session.Session) error {
			updatedId = id
			return nil
		}
		account.DeleteUserFunc = func(id types.ID, sec *session.Session) error {
			deletedId = id
			return nil
		}
		defer func() {
			account.UpdateUserFunc = account.UpdateUser
			account.DeleteUserFunc = account.DeleteUser
		}()

		req := httptest.NewRequest(http.MethodPut, account.PathUsers+"/5", bytes.NewReader([]byte(
			`{"name":"ann","role":"User"}`)))
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(updatedId).To(Equal(types.ID(5)))

		req = httptest.NewRequest(http.MethodDelete, account.PathUsers+"/6", nil)
		status, _, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(deletedId).To(Equal(types.ID(6)))
	})

	t.Run("should map a forbidden deletion onto 403", func(t *testing.T) {
		router := buildRouter()
		account.DeleteUserFunc = func(id types.ID, sec *session.Session) error {
			return bizerror.ErrForbidden
		}
		defer func() { account.DeleteUserFunc = account.DeleteUser }()

		req := httptest.NewRequest(http.MethodDelete, account.PathUsers+"/6", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(MatchJSON(`{"code":"security.forbidden","message":"access forbidden","data":null}`))
	})

	t.Run("internal errors should not leak as success", func(t *testing.T) {
		router := buildRouter()
		account.QueryUsersFunc = func(sec *session.Session) ([]account.UserInfo, error) {
			return nil, errors.New("boom")
		}
		defer func() { account.QueryUsersFunc = account.QueryUsers }()

		req := httptest.NewRequest(http.MethodGet, account.PathUsers, nil)
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusInternalServerError))
	})
}
