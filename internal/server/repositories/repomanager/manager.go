package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/voucher-auth/internal/dbx"
	"github.com/dmitrijs2005/voucher-auth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a *sql.DB or a *sql.Tx and
// owns schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
