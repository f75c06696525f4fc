package testinfra

import (
	"fixflow/session"
	"io/ioutil"
	"net/http"
	"net/http/httptest"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// ExecuteRequest runs a request through the router and returns status code
// and body for assertion.
func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	bodyBytes, _ := ioutil.ReadAll(w.Body)
	return w.Code, string(bodyBytes), w
}

func BuildSession(uid types.ID, name string, role session.Role) *session.Session {
	return &session.Session{Identity: session.Identity{ID: uid, Name: name, Role: role}}
}

func BuildAdminSession(name string) *session.Session {
	return BuildSession(1, name, session.RoleAdmin)
}

func BuildDeveloperSession(name string) *session.Session {
	return BuildSession(2, name, session.RoleDeveloper)
}

func BuildUserSession(name string) *session.Session {
	return BuildSession(3, name, session.RoleUser)
}
