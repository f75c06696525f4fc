package session_test

import (
	"fixflow/bizerror"
	"fixflow/session"
	"fixflow/testinfra"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func TestSignAndVerifyToken(t *testing.T) {
	RegisterTestingT(t)

	t.Run("identity should survive a sign and verify roundtrip", func(t *testing.T) {
		identity := session.Identity{ID: 42, Name: "ann", Role: session.RoleDeveloper}
		token, err := session.SignToken(identity, time.Now())
		Expect(err).To(BeNil())
		Expect(token).ToNot(BeEmpty())

		s, err := session.VerifyToken(token)
		Expect(err).To(BeNil())
		Expect(s.Identity).To(Equal(identity))
		Expect(s.Token).To(Equal(token))
	})

	t.Run("an expired token should be rejected", func(t *testing.T) {
		identity := session.Identity{ID: 42, Name: "ann", Role: session.RoleUser}
		token, err := session.SignToken(identity, time.Now().Add(-session.TokenExpiration-time.Minute))
		Expect(err).To(BeNil())

		_, err = session.VerifyToken(token)
		Expect(err).To(Equal(bizerror.ErrUnauthenticated))
	})

	t.Run("garbage should be rejected", func(t *testing.T) {
		_, err := session.VerifyToken("not.a.token")
		Expect(err).To(Equal(bizerror.ErrUnauthenticated))
	})
}

func TestTokenAuthFilter(t *testing.T) {
	RegisterTestingT(t)

	buildRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(bizerror.ErrorHandling())
		router.GET("/protected", session.TokenAuthFilter(), func(c *gin.Context) {
			c.JSON(http.StatusOK, session.FindSession(c).Identity)
		})
		router.GET("/admin", session.TokenAuthFilter(), session.AdminOnlyFilter(), func(c *gin.Context) {
			c.AbortWithStatus(http.StatusNoContent)
		})
		return router
	}

	t.Run("should pass a valid bearer token through", func(t *testing.T) {
		router := buildRouter()
		token, err := session.SignToken(session.Identity{ID: 7, Name: "ann", Role: session.RoleUser}, time.Now())
		Expect(err).To(BeNil())

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"id":"7","name":"ann","role":"User"}`))
	})

	t.Run("should reject a missing or malformed header", func(t *testing.T) {
		router := buildRouter()

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))

		req = httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic abc")
		status, _, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})

	t.Run("admin filter should reject a non-admin token", func(t *testing.T) {
		router := buildRouter()
		token, err := session.SignToken(session.Identity{ID: 7, Name: "ann", Role: session.RoleDeveloper}, time.Now())
		Expect(err).To(BeNil())

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusForbidden))

		adminToken, err := session.SignToken(session.Identity{ID: 1, Name: "boss", Role: session.RoleAdmin}, time.Now())
		Expect(err).To(BeNil())
		req = httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		status, _, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusNoContent))
	})
}
