// Package approvaltoken はメンター承認リンクの署名付きトークン。
// 中身はバッチIDと発行・失効時刻だけ。使用済み判定は台帳側（mentor_token のクリア）で行う。
package approvaltoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"RACE-backend/internal/platform/apierr"
)

const DefaultTTL = 72 * time.Hour

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Signer struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

func NewSigner(secret []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: secret, ttl: ttl, clock: realClock{}}
}

func (s *Signer) WithClock(c Clock) *Signer {
	s.clock = c
	return s
}

func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue はバッチIDに対するリンク用トークンを発行する
func (s *Signer) Issue(batchID string) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   batchID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify はバッチIDを返す。期限切れ→TOKEN_EXPIRED、改ざん等→TOKEN_INVALID
func (s *Signer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", apierr.ErrTokenExpired()
	default:
		return "", apierr.ErrTokenInvalid()
	}
	if claims.Subject == "" {
		return "", apierr.ErrTokenInvalid()
	}
	return claims.Subject, nil
}
