package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shipledger/internal/dbx"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/entries"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can choose per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Entries(db dbx.DBTX) entries.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
}
