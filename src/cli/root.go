// Package cli is the command-line front end: one-off sanitizing and
// checking, batch scans of directories and buckets, record management and
// the MCP server.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/config"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/gateway"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

type app struct {
	logger     *slog.Logger
	configPath string
}

// NewRootCommand builds the command tree.
func NewRootCommand(logger *slog.Logger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:   "easy-svg-guard",
		Short: "Sanitize SVG uploads and scan them for embedded threats",
		Long: `easy-svg-guard rewrites SVG documents under an allow-list policy and
scans them for scripts, event handlers, hostile references and encoded
payloads. Results are stored so unchanged files are not rescanned.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a JSON config file (defaults apply when omitted)")

	root.AddCommand(
		a.serveCommand(),
		a.scanCommand(),
		a.sanitizeCommand(),
		a.checkCommand(),
		a.resultsCommand(),
		a.statsCommand(),
		a.quarantineCommand(),
		a.deleteCommand(),
		a.resolveCommand(),
		versionCommand(),
	)
	return root
}

// Execute runs the CLI and exits with the command's code.
func Execute(logger *slog.Logger) {
	if err := NewRootCommand(logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var exit *ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		os.Exit(1)
	}
}

func (a *app) loadConfig() (config.Config, error) {
	if a.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (a *app) service() (*gateway.Service, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return gateway.NewService(cfg, a.logger)
}
