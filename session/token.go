package session

import (
	"fixflow/bizerror"
	"os"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/golang-jwt/jwt/v5"
)

const TokenExpiration = 8 * time.Hour

type Claims struct {
	UserID   types.ID `json:"id"`
	Username string   `json:"username"`
	Role     Role     `json:"role"`
	jwt.RegisteredClaims
}

func tokenSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "fixflow-dev-secret"
	}
	return []byte(secret)
}

func SignToken(identity Identity, now time.Time) (string, error) {
	claims := &Claims{
		UserID:   identity.ID,
		Username: identity.Name,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenSecret())
}

func VerifyToken(tokenString string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, bizerror.ErrUnauthenticated
		}
		return tokenSecret(), nil
	})
	if err != nil {
		return nil, bizerror.ErrUnauthenticated
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, bizerror.ErrUnauthenticated
	}

	s := Session{
		Token:    tokenString,
		Identity: Identity{ID: claims.UserID, Name: claims.Username, Role: claims.Role},
	}
	if claims.IssuedAt != nil {
		s.SigningTime = claims.IssuedAt.Time
	}
	return &s, nil
}
