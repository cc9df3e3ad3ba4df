// Package cmd implements the CLI application of the family finance client.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/famfin"
	"github.com/etnz/famfin/api"
	"github.com/etnz/famfin/query"
	"github.com/etnz/famfin/session"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Commands are the famfin subcommands, with their group.
var Commands = []struct {
	Cmd   subcommands.Command
	Group string
}{
	{&loginCmd{}, "session"},
	{&registerCmd{}, "session"},
	{&logoutCmd{}, "session"},
	{&whoamiCmd{}, "session"},
	{&topicCmd{}, "session"},

	{&dashboardCmd{}, "reports"},
	{&accountsCmd{}, "reports"},
	{&netWorthCmd{}, "reports"},
	{&investmentsCmd{}, "reports"},
	{&transactionsCmd{}, "reports"},
	{&statsCmd{}, "reports"},

	{&addAccountCmd{}, "changes"},
	{&addTxCmd{}, "changes"},
	{&transferCmd{}, "changes"},
	{&tradeCmd{}, "changes"},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands {
		c.Register(cmd.Cmd, cmd.Group)
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	apiURL          = flag.String("api-url", api.BaseURLFromEnv(), "Base URL of the finance API. Env "+api.EnvBaseURL)
	sessionDir      = flag.String("session-dir", os.Getenv(EnvSessionDir), "Directory of the persisted session. Defaults to the user config directory. Env "+EnvSessionDir)
	sessionDB       = flag.String("session-db", os.Getenv(EnvSessionDB), "SQLite database of the persisted session, used instead of -session-dir. Env "+EnvSessionDB)
	defaultCurrency = flag.String("currency", envOr(EnvDefaultCurrency, "USD"), "Currency of the aggregated figures. Env "+EnvDefaultCurrency)
	Verbose         = flag.Bool("v", envBool(EnvVerbose), "Log debug messages, including every API call. Env "+EnvVerbose)
	showMetrics     = flag.Bool("metrics", false, "Print the cache metrics on stderr when the command completes")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

// app is the client opened by a command.
type app struct {
	*famfin.Client
	registry *prometheus.Registry
	close    func() error
}

// openStorage opens the session storage selected by the global flags.
func openStorage() (session.Storage, func() error, error) {
	if *sessionDB != "" {
		db, err := session.OpenSQLite(*sessionDB)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	dir := *sessionDir
	if dir == "" {
		var err error
		if dir, err = session.DefaultDir(); err != nil {
			return nil, nil, err
		}
	}
	fs, err := session.NewFileStorage(dir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() error { return nil }, nil
}

// openApp opens the persisted session and the client of the API.
func openApp(ctx context.Context) (*app, error) {
	storage, closeStorage, err := openStorage()
	if err != nil {
		return nil, fmt.Errorf("cannot open session storage: %w", err)
	}
	logger := slog.Default()
	sess, err := session.Open(ctx, storage, logger)
	if err != nil {
		// the session is Anonymous, commands still work.
		logger.Warn("cannot restore session", "error", err)
	}
	registry := prometheus.NewRegistry()
	cache := query.New(query.WithLogger(logger), query.WithRegisterer(registry))
	client := famfin.NewClient(api.NewClient(*apiURL, sess, logger), cache, sess, logger)

	return &app{Client: client, registry: registry, close: closeStorage}, nil
}

// Close waits for the background fetches and closes the storage.
func (a *app) Close() error {
	a.Cache.Wait()
	if *showMetrics {
		if err := a.DumpMetrics(os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "Error printing metrics: %v\n", err)
		}
	}
	return a.close()
}

// DumpMetrics writes the cache metrics in the prometheus text format.
func (a *app) DumpMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// openAuthenticated opens the app and checks there is a session.
func openAuthenticated(ctx context.Context) (*app, subcommands.ExitStatus) {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	if !a.Session.IsAuthenticated() {
		a.Close()
		fmt.Fprintln(os.Stderr, "Not logged in, run 'famfin login' first.")
		return nil, subcommands.ExitFailure
	}
	return a, subcommands.ExitSuccess
}

// failure reports err and returns the failure status. An unauthorized
// request means the session is no longer valid on the server: it is dropped.
func (a *app) failure(ctx context.Context, what string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error %s: %s\n", what, api.Message(err))
	slog.Debug("command failed", "error", err)
	if api.IsUnauthorized(err) && a.Session.IsAuthenticated() {
		if err := a.Logout(ctx); err != nil {
			slog.Warn("cannot drop the rejected session", "error", err)
		}
		fmt.Fprintln(os.Stderr, "The session has been rejected by the server, run 'famfin login' again.")
	}
	return subcommands.ExitFailure
}

// output is where commands print their reports.
var output io.Writer = os.Stdout

// printMarkdown renders md for the terminal when stdout is one, and prints
// it as is otherwise.
func printMarkdown(md string) {
	if f, ok := output.(*os.File); ok && isTerminal(f) {
		out, err := glamour.Render(md, "auto")
		if err == nil {
			fmt.Fprint(output, out)
			return
		}
		slog.Debug("cannot render markdown", "error", err)
	}
	fmt.Fprint(output, md)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
