package server

import (
	"context"

	"github.com/dmitrijs2005/shipledger/internal/server/config"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/services"
)

// BootstrapSuperAdmin connects to the configured database, applies
// migrations and creates the first SUPER_ADMIN account. It fails with
// services.ErrAlreadyBootstrapped once one exists.
func BootstrapSuperAdmin(ctx context.Context, c *config.Config, name, email, password string) (*models.Account, error) {
	logger := newLogger()

	d, err := openDeps(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	defer d.close(ctx, c, logger)

	us := services.NewUserService(d.db, d.rm, d.hasher, d.audit, logger)
	return us.BootstrapSuperAdmin(ctx, name, email, password)
}
