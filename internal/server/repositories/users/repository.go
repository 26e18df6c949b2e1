package users

import (
	"context"

	"github.com/dmitrijs2005/shipledger/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	ToggleActive(ctx context.Context, id int64) (bool, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}
