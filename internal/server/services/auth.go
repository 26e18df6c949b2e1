package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/repomanager"
)

// LoginResult is a fresh session token plus the account it was issued for.
type LoginResult struct {
	Token   string
	Account *models.Account
}

// AuthService verifies credentials at login and session tokens on every
// protected request.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	signer      TokenSigner
	tokenTTL    time.Duration
	logger      logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, signer TokenSigner,
	tokenTTL time.Duration, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		signer:      signer,
		tokenTTL:    tokenTTL,
		logger:      logger.With("module", "auth"),
	}
}

// Login checks email and password. An unknown email and a wrong password
// both yield common.ErrInvalidCredentials, and both pay for one bcrypt
// comparison. An inactive account yields common.ErrAccountInactive.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.ErrMissingRequiredFields
	}

	account, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, surface(ctx, s.logger, "load account", err)
	}

	if !account.Active {
		return nil, common.ErrAccountInactive
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.signer.Sign(models.ActorContext{AccountID: account.ID, Role: account.Role}, s.tokenTTL)
	if err != nil {
		return nil, surface(ctx, s.logger, "sign token", err)
	}

	s.logger.Info(ctx, "login", "account_id", account.ID)
	return &LoginResult{Token: token, Account: account}, nil
}

// Authenticate resolves an Authorization header value to the caller. The
// account's active flag is not consulted: a token stays valid until it
// expires even if the account is deactivated meanwhile.
func (s *AuthService) Authenticate(header string) (models.ActorContext, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return models.ActorContext{}, common.ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return models.ActorContext{}, common.ErrMalformedToken
	}

	return s.signer.Verify(token)
}
