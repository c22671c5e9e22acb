package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aMonteSl/codexr-mcp/register"
)

func newRegisterCommand() *cobra.Command {
	var serverName string
	var binaryPath string

	registerCmd := &cobra.Command{
		Use:   "register project|user [directory] [-- serve args...]",
		Short: "Register the MCP server with an MCP client",
		Long: `Add codexr to an MCP client configuration.

  register project [directory]   writes <directory>/.mcp.json (default: .)
  register user                  writes ~/.claude.json

Arguments after -- are passed to "serve", e.g. roots or flags:

  register project . -- --mode shallow`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, serverArgs := register.SplitArgs(args, cmd.ArgsLenAtDash())
			if len(positional) == 0 {
				return fmt.Errorf("scope is required (project or user)")
			}
			scope, err := register.ParseScope(positional[0])
			if err != nil {
				return err
			}

			var directory string
			switch {
			case scope == register.ScopeProject && len(positional) > 2:
				return fmt.Errorf("register project takes at most one directory")
			case scope == register.ScopeProject && len(positional) == 2:
				directory = positional[1]
			case scope == register.ScopeUser && len(positional) > 1:
				return fmt.Errorf("register user takes no directory")
			}

			configPath, err := register.Register(register.Options{
				ServerName: serverName,
				Scope:      scope,
				Directory:  directory,
				BinaryPath: binaryPath,
				ServerArgs: serverArgs,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered MCP server in %s\n", configPath)
			return nil
		},
	}

	registerCmd.Flags().StringVar(&serverName, "name", "", "server name in the client configuration (default: derived from the binary name)")
	registerCmd.Flags().StringVar(&binaryPath, "binary", "", "server binary path (default: this executable)")
	return registerCmd
}
