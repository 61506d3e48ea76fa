package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/voucher-auth/internal/client/api"
	"github.com/dmitrijs2005/voucher-auth/internal/client/config"
)

// apiClient is the subset of *api.Client the commands use.
type apiClient interface {
	Register(ctx context.Context, u api.NewUser) (*api.User, string, error)
	Login(ctx context.Context, email, password string) (*api.User, string, error)
	Verify(ctx context.Context, token string) (*api.User, string, error)
	ResetPassword(ctx context.Context, userID, password string) (*api.User, string, error)
	CheckActive(ctx context.Context, userID string) (*api.User, string, error)
	ListActive(ctx context.Context, page, size int) (*api.Page, error)
	ListByPreference(ctx context.Context, tag string, page, size int) (*api.Page, error)
	AddPreferences(ctx context.Context, userID string, tags []string) (*api.User, string, error)
	DeletePreferences(ctx context.Context, userID string, tags []string) (*api.User, string, error)
	Ping(ctx context.Context) error
}

type App struct {
	config *config.Config
	api    apiClient
	reader *bufio.Reader
	out    io.Writer

	// user is the account of the last successful login.
	user *api.User
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		api:    api.New(c.ServerURL, c.Timeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run greets the operator, reports whether the server answers and hands
// control to the REPL.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "voucher-auth CLI, server %s (type 'help' for commands)\n", a.config.ServerURL)

	pingCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	if err := a.api.Ping(pingCtx); err != nil {
		fmt.Fprintf(a.out, "warning: server is not healthy: %v\n", err)
	}
	cancel()

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) status() string {
	if a.user == nil {
		return "anonymous"
	}
	return a.user.Email
}
