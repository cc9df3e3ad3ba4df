package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	"github.com/etnz/famfin/api"
)

const (
	EnvSessionDir      = "FAMFIN_SESSION_DIR"
	EnvSessionDB       = "FAMFIN_SESSION_DB"
	EnvDefaultCurrency = "FAMFIN_DEFAULT_CURRENCY"
	EnvVerbose         = "FAMFIN_VERBOSE"
	EnvPassword        = "FAMFIN_PASSWORD"
)

// extensionEnv returns the global configuration as environment variables.
func extensionEnv() []string {
	return []string{
		api.EnvBaseURL + "=" + *apiURL,
		EnvSessionDir + "=" + *sessionDir,
		EnvSessionDB + "=" + *sessionDB,
		EnvDefaultCurrency + "=" + *defaultCurrency,
		EnvVerbose + "=" + strconv.FormatBool(*Verbose),
	}
}

// RunExtension attempts to find and execute an external famfin-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found or executed.
func RunExtension(subcommand string, args []string) (bool, int) {
	externalCmdName := "famfin-" + subcommand

	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		slog.Debug("external command not found in PATH", "command", externalCmdName, "error", err)
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// global flags are passed as environment variables.
	cmd.Env = append(os.Environ(), extensionEnv()...)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)
		return true, 1
	}
	return true, 0
}
