package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/dbx"
	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/policy"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/repomanager"
)

// ErrAlreadyBootstrapped is returned when a SUPER_ADMIN account exists.
var ErrAlreadyBootstrapped = fmt.Errorf("%w: super admin already exists", common.ErrConflict)

// NewAccount is the input of CreateAccount. Role is the wire name.
type NewAccount struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UserService creates accounts and toggles their active flag.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	audit       *AuditService
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, audit *AuditService, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		audit:       audit,
		logger:      logger.With("module", "users"),
	}
}

// CreateAccount creates an active USER or DEV_ADMIN account.
func (s *UserService) CreateAccount(ctx context.Context, actor models.ActorContext, in NewAccount) (*models.Account, error) {
	if err := policy.Require(actor.Role, policy.CreateUser); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Role == "" {
		return nil, common.ErrMissingRequiredFields
	}

	role, ok := models.ParseRole(in.Role)
	if !ok || (role != models.RoleUser && role != models.RoleDevAdmin) {
		return nil, common.ErrInvalidRole
	}

	account, err := s.create(ctx, s.db, in.Name, in.Email, in.Password, role)
	if err != nil {
		return nil, err
	}

	s.audit.Append(actor.AccountID, nil, models.AuditCreateUser,
		fmt.Sprintf("Created user %s (%s)", account.Email, account.Role))

	return account, nil
}

func (s *UserService) create(ctx context.Context, db dbx.DBTX, name, email, password string, role models.Role) (*models.Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, surface(ctx, s.logger, "hash password", err)
	}

	account, err := s.repomanager.Users(db).Create(ctx, &models.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		return nil, surface(ctx, s.logger, "create account", err)
	}
	return account, nil
}

// ToggleActive flips the target account's active flag and returns the new
// value. Targeting oneself is rejected before anything else is checked.
func (s *UserService) ToggleActive(ctx context.Context, actor models.ActorContext, targetID int64) (bool, error) {
	if targetID == actor.AccountID {
		return false, common.ErrSelfModificationForbidden
	}
	if err := policy.Require(actor.Role, policy.ToggleUserActive); err != nil {
		return false, err
	}

	active, err := s.repomanager.Users(s.db).ToggleActive(ctx, targetID)
	if err != nil {
		return false, surface(ctx, s.logger, "toggle account", err)
	}

	action, flag := models.AuditDeactivateUser, 0
	if active {
		action, flag = models.AuditActivateUser, 1
	}
	s.audit.Append(actor.AccountID, nil, action, fmt.Sprintf("User %d status changed to %d", targetID, flag))

	return active, nil
}

// BootstrapSuperAdmin creates the first SUPER_ADMIN. It fails with
// ErrAlreadyBootstrapped once one exists.
func (s *UserService) BootstrapSuperAdmin(ctx context.Context, name, email, password string) (*models.Account, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, common.ErrMissingRequiredFields
	}

	var account *models.Account
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Users(tx).CountByRole(ctx, models.RoleSuperAdmin)
		if err != nil {
			return surface(ctx, s.logger, "count super admins", err)
		}
		if n > 0 {
			return ErrAlreadyBootstrapped
		}

		account, err = s.create(ctx, tx, name, email, password, models.RoleSuperAdmin)
		return err
	})
	if err != nil {
		return nil, surface(ctx, s.logger, "bootstrap", err)
	}

	s.audit.Append(account.ID, nil, models.AuditCreateUser,
		fmt.Sprintf("Created user %s (%s)", account.Email, account.Role))

	return account, nil
}
