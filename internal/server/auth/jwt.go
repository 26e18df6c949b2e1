package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultIssuer = "shipledger"

// Claims is the session token payload: the standard registered claims plus
// the account id and role the token was issued for.
type Claims struct {
	AccountID int64  `json:"id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 session tokens with a shared secret.
type TokenSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenSigner(secret []byte) *TokenSigner {
	return &TokenSigner{secret: secret, issuer: DefaultIssuer, now: time.Now}
}

// Sign issues a token for actor that expires after ttl.
func (s *TokenSigner) Sign(actor models.ActorContext, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		AccountID: actor.AccountID,
		Role:      actor.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   fmt.Sprint(actor.AccountID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the token and returns the actor it was issued for.
// Structurally broken tokens yield common.ErrMalformedToken; bad signatures,
// expired tokens and unknown roles yield common.ErrInvalidToken.
func (s *TokenSigner) Verify(tokenString string) (models.ActorContext, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return models.ActorContext{}, common.ErrMalformedToken
		}
		return models.ActorContext{}, common.ErrInvalidToken
	}

	if !token.Valid {
		return models.ActorContext{}, common.ErrInvalidToken
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok || claims.AccountID <= 0 {
		return models.ActorContext{}, common.ErrInvalidToken
	}

	return models.ActorContext{AccountID: claims.AccountID, Role: role}, nil
}
