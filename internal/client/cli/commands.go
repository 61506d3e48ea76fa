package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/voucher-auth/internal/client/api"
)

// usageError reports a malformed command line.
type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func (a *App) Register(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usageError("register")
	}

	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	role, err := GetSimpleText(a.reader, "Role (Enter for default)", a.out)
	if err != nil {
		return err
	}
	prefs, err := GetList(a.reader, "Preference tags", a.out)
	if err != nil {
		return err
	}

	u, msg, err := a.api.Register(ctx, api.NewUser{
		Email:       email,
		Username:    username,
		Password:    password,
		Role:        role,
		Preferences: prefs,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	printUser(a.out, u)
	return nil
}

func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usageError("login")
	}

	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}

	u, msg, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.user = u
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) Verify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("verify <token>")
	}
	return a.showUser(a.api.Verify(ctx, args[0]))
}

func (a *App) Reset(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("reset <userId>")
	}

	password, err := GetPassword(a.out, "New password")
	if err != nil {
		return err
	}
	again, err := GetPassword(a.out, "Repeat new password")
	if err != nil {
		return err
	}
	if password != again {
		return errors.New("passwords do not match")
	}

	return a.showUser(a.api.ResetPassword(ctx, args[0], password))
}

func (a *App) Active(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("active <userId>")
	}
	return a.showUser(a.api.CheckActive(ctx, args[0]))
}

func (a *App) Users(ctx context.Context, args []string) error {
	page, size, err := parsePaging(args)
	if err != nil {
		return fmt.Errorf("%w (users [page] [size])", err)
	}

	p, err := a.api.ListActive(ctx, page, size)
	if err != nil {
		return err
	}
	printUsers(a.out, p)
	return nil
}

func (a *App) ByTag(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageError("bytag <tag> [page] [size]")
	}
	page, size, err := parsePaging(args[1:])
	if err != nil {
		return fmt.Errorf("%w (bytag <tag> [page] [size])", err)
	}

	p, err := a.api.ListByPreference(ctx, args[0], page, size)
	if err != nil {
		return err
	}
	printUsers(a.out, p)
	return nil
}

func (a *App) AddPrefs(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("addprefs <userId> <tag>...")
	}
	return a.showUser(a.api.AddPreferences(ctx, args[0], args[1:]))
}

func (a *App) DelPrefs(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("delprefs <userId> <tag>...")
	}
	return a.showUser(a.api.DeletePreferences(ctx, args[0], args[1:]))
}

// showUser prints the server message and the returned user, or passes the
// error through.
func (a *App) showUser(u *api.User, msg string, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	printUser(a.out, u)
	return nil
}

// parsePaging reads the optional [page] [size] arguments. Zero means "let
// the server decide".
func parsePaging(args []string) (page, size int, err error) {
	if len(args) > 2 {
		return 0, 0, errors.New("too many arguments")
	}
	vals := []*int{&page, &size}
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("%q is not a non-negative number", s)
		}
		*vals[i] = n
	}
	return page, size, nil
}
