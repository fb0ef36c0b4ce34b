package backendtest

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func generateToken(email string, secret []byte, ttl time.Duration) (string, error) {
	claims := jwtlib.RegisteredClaims{
		Subject:   email,
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwtlib.NewNumericDate(time.Now()),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(tokenString string, secret []byte) (*jwtlib.RegisteredClaims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &jwtlib.RegisteredClaims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*jwtlib.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (s *Server) issueToken(email string) (string, error) {
	return generateToken(email, []byte(jwtSecret), s.TokenTTL)
}

func newCounter() *atomic.Int64 {
	return &atomic.Int64{}
}

func newBody(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}
