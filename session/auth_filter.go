package session

import (
	"fixflow/bizerror"
	"strings"

	"github.com/gin-gonic/gin"
)

const KeySecCtx = "SecCtx"

func FindSession(ctx *gin.Context) *Session {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return &Session{Context: ctx.Request.Context()}
	}
	s0, ok := value.(*Session)
	if !ok || s0.Token == "" {
		return &Session{Context: ctx.Request.Context()}
	}
	s := s0.Clone()
	s.Context = ctx.Request.Context() // trace context
	return &s
}

func InjectSessionIntoGinContext(ctx *gin.Context, s *Session) {
	if s != nil && s.Token != "" {
		ctx.Set(KeySecCtx, s)
	}
}

// TokenAuthFilter rejects requests without a valid bearer token.
func TokenAuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			panic(bizerror.ErrUnauthenticated)
		}
		s, err := VerifyToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			panic(bizerror.ErrUnauthenticated)
		}
		InjectSessionIntoGinContext(ctx, s)
		ctx.Next()
	}
}

// AdminOnlyFilter must be placed after TokenAuthFilter.
func AdminOnlyFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !FindSession(ctx).IsAdmin() {
			panic(bizerror.ErrForbidden)
		}
		ctx.Next()
	}
}
