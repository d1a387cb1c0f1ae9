package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/feedfilter/internal/config"
)

// printConfigs writes the configured profiles in the --list-configs format.
func printConfigs(w io.Writer, cfg *config.Config) error {
	var b strings.Builder
	b.WriteString("Available configurations:\n")
	for _, name := range cfg.ProfileNames() {
		p := cfg.Profiles[name]
		mode := "Search"
		if p.Mode == config.ModeByURL {
			mode = "URL"
		}
		fmt.Fprintf(&b, "  - %s: %s mode, Target: %s\n", name, mode, p.Target())
		fmt.Fprintf(&b, "    Filter keywords: %s\n", strings.Join(p.FilterKeywords, ", "))
	}
	if def := cfg.DefaultProfile(); def != "" {
		fmt.Fprintf(&b, "\nDefault configuration: %s\n", def)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func newConfigsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configs",
		Short: "List available configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return printConfigs(cmd.OutOrStdout(), cfg)
		},
	}
}
