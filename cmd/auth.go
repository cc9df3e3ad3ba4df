package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/famfin"
	"github.com/etnz/famfin/api"
	"github.com/google/subcommands"
)

// input is where passwords are read from when not given as flags.
var input io.Reader = os.Stdin

// readPassword returns flagValue, or reads a line from input.
func readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if pw := os.Getenv(EnvPassword); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(input).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("cannot read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type loginCmd struct {
	email    string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and persist the session" }
func (*loginCmd) Usage() string {
	return `famfin login -email <email> [-password <password>]

  Signs in to the finance API. The session is persisted and used by the
  other commands until 'famfin logout'.

  The password is read from -password, then from the FAMFIN_PASSWORD
  environment variable, then from stdin.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Email of the user")
	f.StringVar(&c.password, "password", "", "Password of the user")
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "Error: -email is required")
		return subcommands.ExitUsageError
	}
	password, err := readPassword(c.password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	res, err := a.Login(ctx, famfin.Credentials{Email: c.email, Password: password})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error logging in: %s\n", api.Message(err))
		return subcommands.ExitFailure
	}
	fmt.Fprintf(output, "Logged in as %s\n", res.User.Email)
	return subcommands.ExitSuccess
}

type registerCmd struct {
	email      string
	password   string
	familyName string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create a user and its family, and sign in" }
func (*registerCmd) Usage() string {
	return `famfin register -email <email> -family <name> [-password <password>]

  Creates a user and its family, then signs in as 'famfin login' does.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Email of the new user")
	f.StringVar(&c.password, "password", "", "Password of the new user")
	f.StringVar(&c.familyName, "family", "", "Name of the new family")
}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" {
		fmt.Fprintln(os.Stderr, "Error: -email is required")
		return subcommands.ExitUsageError
	}
	password, err := readPassword(c.password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	res, err := a.Register(ctx, famfin.Registration{Email: c.email, Password: password, FamilyName: c.familyName})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error registering: %s\n", api.Message(err))
		return subcommands.ExitFailure
	}
	fmt.Fprintf(output, "Registered and logged in as %s\n", res.User.Email)
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "end the session" }
func (*logoutCmd) Usage() string {
	return `famfin logout

  Removes the persisted session. Logging out without a session is not an error.
`
}
func (*logoutCmd) SetFlags(f *flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.Logout(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(output, "Logged out")
	return subcommands.ExitSuccess
}

type whoamiCmd struct{}

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "display the signed in user" }
func (*whoamiCmd) Usage() string {
	return `famfin whoami

  Displays the user of the persisted session and when its token expires.
`
}
func (*whoamiCmd) SetFlags(f *flag.FlagSet) {}

func (*whoamiCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	sess := a.Session.Snapshot()
	if !sess.IsAuthenticated {
		fmt.Fprintln(output, "Not logged in")
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(output, "%s (user %s, family %s)\n", sess.User.Email, sess.User.ID, sess.User.FamilyID)
	if exp, ok := a.Session.Expiry(); ok {
		fmt.Fprintf(output, "Session expires %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
	return subcommands.ExitSuccess
}
