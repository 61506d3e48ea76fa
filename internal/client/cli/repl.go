package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Reset(ctx context.Context, args []string) error
	Active(ctx context.Context, args []string) error
	Users(ctx context.Context, args []string) error
	ByTag(ctx context.Context, args []string) error
	AddPrefs(ctx context.Context, args []string) error
	DelPrefs(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  register                      create an account
  login                         log in with email and password
  verify <token>                redeem a verification token
  reset <userId>                set a new password
  active <userId>               show a user if it is active
  users [page] [size]           list active users
  bytag <tag> [page] [size]     list active users with a preference tag
  addprefs <userId> <tag>...    add preference tags
  delprefs <userId> <tag>...    remove preference tags
  help                          show this text
  exit | quit                   leave the program`

// runREPL reads commands from reader until EOF, "exit" or "quit", and
// dispatches them to a. The first token is the command, the rest are its
// arguments. Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	commands := map[string]func(context.Context, []string) error{
		"register": a.Register,
		"login":    a.Login,
		"verify":   a.Verify,
		"reset":    a.Reset,
		"active":   a.Active,
		"users":    a.Users,
		"bytag":    a.ByTag,
		"addprefs": a.AddPrefs,
		"delprefs": a.DelPrefs,
	}

	for {
		printlnFn(fmt.Sprintf("va (%s) > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printlnFn("Error:", err)
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		run, ok := commands[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if err := run(ctx, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}
