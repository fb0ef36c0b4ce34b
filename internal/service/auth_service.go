package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/pkg/jwt"
	"github.com/xxxsen/docqa/internal/tokenstore"
)

type AuthAPI interface {
	Me(ctx context.Context, token string) (*model.User, error)
	Signup(ctx context.Context, req model.SignupRequest) (*model.TokenResponse, error)
	Login(ctx context.Context, email, password string) (*model.TokenResponse, error)
}

// AuthService holds the session for one running client. The persisted
// token and the in-memory session are updated together: once Init has
// returned, a stored token always has a user next to it.
type AuthService struct {
	api    AuthAPI
	tokens tokenstore.Store
	now    func() time.Time
	group  singleflight.Group

	mu      sync.Mutex
	session model.Session
}

func NewAuthService(api AuthAPI, tokens tokenstore.Store) *AuthService {
	return &AuthService{api: api, tokens: tokens, now: time.Now}
}

// Init restores the persisted session. It never fails; anything that goes
// wrong leaves the client unauthenticated.
func (s *AuthService) Init(ctx context.Context) {
	token, err := s.tokens.Load()
	if err != nil {
		logutil.GetLogger(ctx).Warn("load persisted token failed", zap.Error(err))
		s.reset(ctx)
		return
	}
	if token == "" {
		s.reset(ctx)
		return
	}
	if err := s.Verify(ctx, token); err != nil {
		logutil.GetLogger(ctx).Info("persisted session not restored", zap.Error(err))
	}
}

// Verify checks token against the backend and adopts it on success. On any
// failure the session and the persisted token are cleared.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		s.reset(ctx)
		return appErr.ErrUnauthenticated
	}
	if jwt.Expired(token, s.now()) {
		s.reset(ctx)
		return fmt.Errorf("token expired: %w", appErr.ErrUnauthenticated)
	}
	_, err, _ := s.group.Do(token, func() (interface{}, error) {
		user, err := s.api.Me(ctx, token)
		if err != nil {
			s.reset(ctx)
			return nil, err
		}
		if err := s.adopt(user, token); err != nil {
			s.reset(ctx)
			return nil, err
		}
		logutil.GetLogger(ctx).Info("session verified", zap.String("user_id", user.ID), zap.String("email", user.Email))
		return user, nil
	})
	return err
}

// Login adopts an already issued token.
func (s *AuthService) Login(ctx context.Context, token string) error {
	return s.Verify(ctx, token)
}

func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	return s.Login(ctx, resp.AccessToken)
}

// Signup registers and signs in. A response without a token counts as a
// failed signup.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	resp, err := s.api.Signup(ctx, req)
	if err != nil {
		return err
	}
	if resp == nil || strings.TrimSpace(resp.AccessToken) == "" {
		return &appErr.MalformedResponseError{Op: "signup", Reason: "no access_token issued"}
	}
	return s.Login(ctx, resp.AccessToken)
}

// Check re-validates the live session against the backend. Unlike Verify
// it leaves the session alone on failure; the caller decides whether the
// error means the session is over (see Expire).
func (s *AuthService) Check(ctx context.Context) error {
	s.mu.Lock()
	token := s.session.Token
	s.mu.Unlock()
	if token == "" {
		return appErr.ErrUnauthenticated
	}
	if jwt.Expired(token, s.now()) {
		return fmt.Errorf("token expired: %w", appErr.ErrUnauthenticated)
	}
	user, err := s.api.Me(ctx, token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Token == token {
		s.session.User = user
	}
	return nil
}

// Logout forgets the session locally. The backend is not told.
func (s *AuthService) Logout(ctx context.Context) {
	s.reset(ctx)
	logutil.GetLogger(ctx).Info("logged out")
}

// Expire tears down the session after the backend rejected its token. Only
// the call that actually ended a live session reports true, so concurrent
// 401s lead to a single navigation.
func (s *AuthService) Expire(ctx context.Context) bool {
	s.mu.Lock()
	live := s.session.IsAuthenticated()
	token := s.session.Token
	s.session = model.Session{}
	s.mu.Unlock()
	if token != "" {
		if _, err := s.tokens.CompareAndClear(token); err != nil {
			logutil.GetLogger(ctx).Error("clear expired token failed", zap.Error(err))
		}
	}
	if live {
		logutil.GetLogger(ctx).Info("session expired")
	}
	return live
}

func (s *AuthService) Session() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.session
	if out.User != nil {
		user := *out.User
		out.User = &user
	}
	return out
}

func (s *AuthService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.IsAuthenticated()
}

func (s *AuthService) adopt(user *model.User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tokens.Save(token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.session = model.Session{User: user, Token: token}
	return nil
}

func (s *AuthService) reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = model.Session{}
	if err := s.tokens.Clear(); err != nil {
		logutil.GetLogger(ctx).Error("clear persisted token failed", zap.Error(err))
	}
}
