package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/accswitch/internal/config"
)

func (a *app) addCommand() *cobra.Command {
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a new account",
	}

	var device bool
	microsoft := &cobra.Command{
		Use:   "microsoft",
		Short: "Sign in with a Microsoft account",
		Long: `Sign in with a Microsoft account in the browser. With --device a code is shown
instead, which can be entered on any other device.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return a.cli.runAddMicrosoft(cmd.Context(), device)
		}),
	}
	microsoft.Flags().BoolVar(&device, "device", false, "Sign in with a code on another device")

	offline := &cobra.Command{
		Use:   "offline <name>",
		Short: "Add an offline account",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			return a.cli.runAddOffline(cmd.Context(), args[0])
		}),
	}

	add.AddCommand(microsoft, offline)
	return add
}

func (a *app) loginCommand() *cobra.Command {
	var printToken bool
	cmd := &cobra.Command{
		Use:     "login <name|id>",
		Aliases: []string{"use", "switch"},
		Short:   "Log in to a stored account and make it active",
		Args:    cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			return a.cli.runLogin(cmd.Context(), args[0], printToken)
		}),
	}
	cmd.Flags().BoolVar(&printToken, "print-token", false, "Print the game access token to stdout")
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored accounts",
		Args:    cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return a.cli.runList(cmd.Context())
		}),
	}
}

func (a *app) deleteCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "delete <name|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored account",
		Args:    cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			return a.cli.runDelete(cmd.Context(), args[0], force)
		}),
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and the active account",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			path := a.flags.configPath
			if path == "" {
				path = config.Path()
			}
			return a.cli.runStatus(cmd.Context(), path)
		}),
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// хранилище для вывода версии не нужно
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "accswitch\n")
			fmt.Fprintf(out, "Version:    %s\n", a.info.Version)
			fmt.Fprintf(out, "Build Date: %s\n", a.info.BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", a.info.GitCommit)
		},
	}
}
