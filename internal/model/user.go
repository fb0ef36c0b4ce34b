package model

import (
	"fmt"
	"strings"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt Timestamp `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

func (u *User) Validate() error {
	if u == nil {
		return fmt.Errorf("user is null")
	}
	if strings.TrimSpace(u.ID) == "" && strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("user has neither id nor email")
	}
	return nil
}

type SignupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user,omitempty"`
}

func (t *TokenResponse) Validate() error {
	if t == nil {
		return fmt.Errorf("token payload is null")
	}
	if strings.TrimSpace(t.AccessToken) == "" {
		return fmt.Errorf("access_token is required")
	}
	return nil
}

// Session pairs the authenticated user with its bearer token.
type Session struct {
	User  *User
	Token string
}

func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}
