package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/report"
)

// ExitUnsafe is the exit code when check finds a threat.
const ExitUnsafe = 3

// readInput reads a file argument, or stdin for "-".
func readInput(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(arg)
}

func (a *app) sanitizeCommand() *cobra.Command {
	var policyName, output string
	cmd := &cobra.Command{
		Use:   "sanitize <file|->",
		Short: "Rewrite an SVG under a policy and print the cleaned markup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			if policyName == "" {
				policyName = svc.Config.Policy.Default
			}
			res, err := svc.Sanitizer.Sanitize(raw, policyName)
			if err != nil {
				return &ExitError{Code: ExitUnsafe, Err: fmt.Errorf("cannot sanitize: %w", err)}
			}

			for _, r := range res.Removed {
				target := r.Element
				if r.Attribute != "" {
					target += "@" + r.Attribute
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "removed %s %s (%s)\n", r.Kind, target, r.Reason)
			}

			if output != "" {
				return os.WriteFile(output, res.Content, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(append(res.Content, '\n'))
			return err
		},
	}
	cmd.Flags().StringVarP(&policyName, "policy", "p", "", "policy tier (strict, basic, advanced or a pack policy)")
	cmd.Flags().StringVarP(&output, "output", "w", "", "write the cleaned SVG to this file")
	return cmd
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|->",
		Short: "Quick upload-time check; exits 3 when a threat is found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			v, err := svc.Scanner.Check(raw)
			if err != nil {
				return &ExitError{Code: ExitUnsafe, Err: err}
			}
			if err := report.JSON(cmd.OutOrStdout(), v); err != nil {
				return err
			}
			if !v.Safe {
				return &ExitError{Code: ExitUnsafe, Err: fmt.Errorf("%s threat found", v.Severity)}
			}
			return nil
		},
	}
}
