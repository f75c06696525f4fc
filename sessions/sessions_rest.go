package sessions

import (
	"fixflow/account"
	"fixflow/bizerror"
	"fixflow/session"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"golang.org/x/time/rate"
)

var PathSessions = "/v1/sessions"

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string       `json:"token"`
	Username string       `json:"username"`
	Role     session.Role `json:"role"`
}

func RegisterSessionsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathSessions, middleWares...)
	g.POST("", handleLogin)
}

var (
	loginLimiters     = map[string]*rate.Limiter{}
	loginLimitersLock sync.Mutex
)

func loginLimiter(clientIP string) *rate.Limiter {
	loginLimitersLock.Lock()
	defer loginLimitersLock.Unlock()
	limiter, found := loginLimiters[clientIP]
	if !found {
		limiter = rate.NewLimiter(rate.Every(time.Second), 10)
		loginLimiters[clientIP] = limiter
	}
	return limiter
}

func handleLogin(c *gin.Context) {
	if !loginLimiter(c.ClientIP()).Allow() {
		panic(bizerror.ErrTooManyRequests)
	}

	login := LoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	identity, err := account.AuthenticateUserFunc(login.Username, login.Password)
	if err != nil {
		panic(err)
	}
	token, err := session.SignToken(*identity, time.Now())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &LoginResponse{Token: token, Username: identity.Name, Role: identity.Role})
}
