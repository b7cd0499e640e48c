// Package cli implements the authctl commands on top of the authkeeper API.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/api"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// API is the subset of the server API the commands use.
type API interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.Account, error)
	Login(ctx context.Context, email, password string) (*api.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, accessToken string) (*api.Account, error)
}

const usage = `usage: authctl [-a url] [-session file] [-timeout dur] <command>

commands:
  register   create an account
  login      sign in and store the session
  refresh    exchange the refresh token for a new access token
  me         show the signed-in account
  logout     revoke the refresh token and forget the session`

type App struct {
	api     API
	session sessionStore
	reader  *bufio.Reader
	out     io.Writer
	fd      int
}

func NewApp(c *config.Config) *App {
	return &App{
		api:     api.NewClient(c.ServerURL, c.Timeout),
		session: sessionStore{path: c.SessionFile},
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		fd:      int(os.Stdin.Fd()),
	}
}

// Run executes the first positional argument as a command.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd := firstCommand(args)

	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "refresh":
		return a.Refresh(ctx)
	case "me":
		return a.Me(ctx)
	case "logout":
		return a.Logout(ctx)
	case "", "help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) Register(ctx context.Context) error {
	var req api.RegisterRequest
	var err error

	if req.Email, err = GetSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if req.FirstName, err = GetSimpleText(a.reader, "Enter first name", a.out); err != nil {
		return err
	}
	if req.LastName, err = GetSimpleText(a.reader, "Enter last name", a.out); err != nil {
		return err
	}
	if req.Gender, err = GetSimpleText(a.reader, "Enter gender (m/f)", a.out); err != nil {
		return err
	}
	if req.Company, err = GetOptionalText(a.reader, "Enter company", a.out); err != nil {
		return err
	}

	password, err := GetPassword(a.fd, a.out)
	if err != nil {
		return err
	}
	req.Password = string(password)
	common.WipeByteArray(password)

	account, err := a.api.Register(ctx, req)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return errors.New("this email is already registered")
		}
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (id=%d)\n", account.Email, account.ID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.fd, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return errors.New("invalid email or password")
		}
		return err
	}
	if err := a.session.Save(pair); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if _, err := a.refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Access token refreshed")
	return nil
}

// Me prints the signed-in account, refreshing the access token once if the
// server rejects it.
func (a *App) Me(ctx context.Context) error {
	pair, err := a.session.Load()
	if err != nil {
		return err
	}

	account, err := a.api.Me(ctx, pair.AccessToken)
	if errors.Is(err, common.ErrorUnauthorized) {
		if pair, err = a.refresh(ctx); err != nil {
			return err
		}
		account, err = a.api.Me(ctx, pair.AccessToken)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id:      %d\nemail:   %s\nname:    %s %s\ngender:  %s\n",
		account.ID, account.Email, account.FirstName, account.LastName, account.Gender)
	if account.Company != nil {
		fmt.Fprintf(a.out, "company: %s\n", *account.Company)
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	pair, err := a.session.Load()
	if err != nil {
		return err
	}

	// An already revoked token still ends the local session.
	if err := a.api.Logout(ctx, pair.RefreshToken); err != nil && !errors.Is(err, common.ErrorUnauthorized) {
		return err
	}
	if err := a.session.Clear(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) refresh(ctx context.Context) (*api.TokenPair, error) {
	pair, err := a.session.Load()
	if err != nil {
		return nil, err
	}

	fresh, err := a.api.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			_ = a.session.Clear()
			return nil, errors.New("session expired, please log in again")
		}
		return nil, err
	}
	if err := a.session.Save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// firstCommand returns the first argument that is neither a flag nor the
// value of a known flag.
func firstCommand(args []string) string {
	valued := map[string]bool{"-a": true, "-session": true, "-timeout": true}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if valued[arg] {
			i++
			continue
		}
		if len(arg) > 0 && arg[0] == '-' {
			continue
		}
		return arg
	}
	return ""
}
