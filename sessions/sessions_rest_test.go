package sessions_test

import (
	"bytes"
	"encoding/json"
	"fixflow/account"
	"fixflow/bizerror"
	"fixflow/session"
	"fixflow/sessions"
	"fixflow/testinfra"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(bizerror.ErrorHandling())
	sessions.RegisterSessionsRestAPI(router)
	return router
}

func TestLogin(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should respond with a verifiable token on valid credentials", func(t *testing.T) {
		router := buildRouter()
		account.AuthenticateUserFunc = func(name, secret string) (*session.Identity, error) {
			Expect(name).To(Equal("ann"))
			Expect(secret).To(Equal("s3cret"))
			return &session.Identity{ID: 7, Name: "ann", Role: session.RoleDeveloper}, nil
		}
		defer func() { account.AuthenticateUserFunc = account.AuthenticateUser }()

		req := httptest.NewRequest(http.MethodPost, sessions.PathSessions,
			bytes.NewReader([]byte(`{"username":"ann","password":"s3cret"}`)))
		req.RemoteAddr = "10.1.0.1:1234"
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))

		resp := sessions.LoginResponse{}
		Expect(json.Unmarshal([]byte(body), &resp)).To(BeNil())
		Expect(resp.Username).To(Equal("ann"))
		Expect(resp.Role).To(Equal(session.RoleDeveloper))

		s, err := session.VerifyToken(resp.Token)
		Expect(err).To(BeNil())
		Expect(s.Identity.Name).To(Equal("ann"))
	})

	t.Run("should answer invalid credentials with 401", func(t *testing.T) {
		router := buildRouter()
		account.AuthenticateUserFunc = func(name, secret string) (*session.Identity, error) {
			return nil, bizerror.ErrInvalidCredentials
		}
		defer func() { account.AuthenticateUserFunc = account.AuthenticateUser }()

		req := httptest.NewRequest(http.MethodPost, sessions.PathSessions,
			bytes.NewReader([]byte(`{"username":"ann","password":"bad"}`)))
		req.RemoteAddr = "10.1.0.2:1234"
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(MatchJSON(`{"code":"session.invalid_credentials","message":"invalid credentials","data":null}`))
	})

	t.Run("should reject a body without credentials", func(t *testing.T) {
		router := buildRouter()

		req := httptest.NewRequest(http.MethodPost, sessions.PathSessions,
			bytes.NewReader([]byte(`{"username":"ann"}`)))
		req.RemoteAddr = "10.1.0.3:1234"
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	t.Run("should throttle a hammering client", func(t *testing.T) {
		router := buildRouter()
		account.AuthenticateUserFunc = func(name, secret string) (*session.Identity, error) {
			return nil, bizerror.ErrInvalidCredentials
		}
		defer func() { account.AuthenticateUserFunc = account.AuthenticateUser }()

		var lastStatus int
		for i := 0; i < 30; i++ {
			req := httptest.NewRequest(http.MethodPost, sessions.PathSessions,
				bytes.NewReader([]byte(`{"username":"ann","password":"bad"}`)))
			req.RemoteAddr = "10.1.0.4:1234"
			lastStatus, _, _ = testinfra.ExecuteRequest(req, router)
			if lastStatus == http.StatusTooManyRequests {
				break
			}
		}
		Expect(lastStatus).To(Equal(http.StatusTooManyRequests))
	})
}
