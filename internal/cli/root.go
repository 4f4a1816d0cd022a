package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Role       string
	Token      string
	NoLatency  bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the toolproxy CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "toolproxy",
		Short: "Run operations through resilient invocation pipelines",
		Long: `toolproxy wraps payment, report and image operations in a pipeline of
logging, rate limiting, caching, circuit breaking, access control and lazy
construction, one pipeline per operation and caller role.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return commandError(fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./toolproxy.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Role, "role", "", "caller role")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token carrying the caller role (needs auth.jwt.key)")
	cmd.PersistentFlags().BoolVar(&opts.NoLatency, "no-latency", false, "skip simulated backend latency")

	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))
	cmd.AddCommand(NewHealthCommand(opts))

	return cmd
}
