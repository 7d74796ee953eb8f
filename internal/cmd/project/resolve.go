package project

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcdeck/internal/config"
	"github.com/Iron-Ham/svcdeck/internal/deck"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <interpreter> <script>",
	Short: "Show the command a service would be launched with",
	Long: `Show the command line svcdeck builds for an interpreter and a service
script. Paths under a configured remote root (paths.remote_roots) are
translated into the remote environment and launched through
paths.launcher.

Example:
  svcdeck resolve '\\wsl$\Ubuntu\usr\bin\python3' '\\wsl$\Ubuntu\home\me\svc\main.py'
  # wsl -d Ubuntu /usr/bin/python3 -u /home/me/svc/main.py`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

var resolveJSON bool

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the resolved command as JSON")
}

// RegisterResolveCmd registers the resolve command with the given parent command.
func RegisterResolveCmd(parent *cobra.Command) {
	parent.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	resolved := deck.NewResolver(config.Get()).Resolve(args[0], args[1])
	out := cmd.OutOrStdout()

	if resolveJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Argv        []string `json:"argv"`
			Translated  bool     `json:"translated"`
			Environment string   `json:"environment,omitempty"`
		}{resolved.Argv(), resolved.Translated, resolved.Environment})
	}

	fmt.Fprintln(out, resolved.String())
	return nil
}
