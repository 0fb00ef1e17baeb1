// Package auth はログイン判定と署名付きセッショントークンの発行・検証を提供する。
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/energylog/internal/model"
)

// CredentialStore は認証サービスが必要とする資格情報テーブルのインターフェース。
type CredentialStore interface {
	Authenticate(username, password string) model.AuthState
	Lookup(username string) (model.User, bool)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	Secret        []byte
	SessionMaxAge int // セッション有効期間（秒）
}

// Claims はセッショントークンに格納するクレーム。
type Claims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// LoginResult はログイン試行の結果。
// StateがAuthAuthenticatedの場合のみSessionとTokenが設定される。
type LoginResult struct {
	State   model.AuthState
	Session *model.Session
	Token   string
}

// Service はログインとセッションに関するビジネスロジックを提供する。
type Service struct {
	store  CredentialStore
	config ServiceConfig
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(store CredentialStore, config ServiceConfig) *Service {
	return &Service{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// MaxAge はセッションの有効期間を返す。
func (s *Service) MaxAge() time.Duration {
	return time.Duration(s.config.SessionMaxAge) * time.Second
}

// Login はユーザー名とパスワードを照合する。
// 認証に成功した場合はセッションを発行し、署名付きトークンを返す。
// ロックアウトや試行回数制限は行わない。
func (s *Service) Login(username, password string) (*LoginResult, error) {
	state := s.store.Authenticate(username, password)
	if state != model.AuthAuthenticated {
		if state == model.AuthRejected {
			slog.Warn("login rejected", slog.String("username", username))
		}
		return &LoginResult{State: state}, nil
	}

	user, _ := s.store.Lookup(username)

	now := s.now()
	session := &model.Session{
		ID:        uuid.New().String(),
		Username:  user.Username,
		Name:      user.Name,
		ExpiresAt: now.Add(s.MaxAge()),
	}

	token, err := s.sign(session, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("username", session.Username),
		slog.String("session_id", session.ID),
	)

	return &LoginResult{State: state, Session: session, Token: token}, nil
}

// Verify はセッショントークンを検証し、セッションを返す。
// 署名不正、期限切れ、資格情報テーブルに存在しないユーザーの場合はErrSessionInvalidを返す。
func (s *Service) Verify(token string) (*model.Session, error) {
	if token == "" {
		return nil, model.ErrSessionInvalid
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.config.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSessionInvalid, err)
	}
	if !parsed.Valid {
		return nil, model.ErrSessionInvalid
	}

	if _, ok := s.store.Lookup(claims.Username); !ok {
		return nil, fmt.Errorf("%w: unknown user %q", model.ErrSessionInvalid, claims.Username)
	}

	return &model.Session{
		ID:        claims.ID,
		Username:  claims.Username,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) sign(session *model.Session, now time.Time) (string, error) {
	if len(s.config.Secret) == 0 {
		return "", errors.New("session secret is empty")
	}

	claims := &Claims{
		Username: session.Username,
		Name:     session.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
}
