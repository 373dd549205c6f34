package util

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what an access token vouches for.
type Identity struct {
	UserID    int64
	Username  string
	CompanyID *int64
}

type accessClaims struct {
	Username  string `json:"usr"`
	CompanyID *int64 `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenService) AccessTTL() time.Duration { return s.ttl }

func (s *TokenService) SignAccessToken(id Identity) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := accessClaims{
		Username:  id.Username,
		CompanyID: id.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, exp, err
}

func (s *TokenService) ParseAccessToken(tokenStr string) (Identity, error) {
	var claims accessClaims
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}
	uid, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: uid, Username: claims.Username, CompanyID: claims.CompanyID}, nil
}
