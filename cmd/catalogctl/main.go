// Command catalogctl runs maintenance tasks against the engineering notes
// catalog: inspecting the tree, reconciling storage, exporting and creating
// admin accounts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yigit/engnotes/internal/bootstrap"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "catalogctl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Engineering notes catalog maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", bootstrap.DefaultConfigPath, "Config file path (YAML)")

	cmd.AddCommand(
		treeCmd(&configPath),
		reconcileCmd(&configPath),
		exportCmd(&configPath),
		deleteCmd(&configPath),
		createAdminCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// withDeps opens the database and builds the service graph for one command.
func withDeps(configPath string, fn func(deps *bootstrap.Dependencies) error) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return err
	}
	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	deps, err := bootstrap.BuildDependencies(cfg, database, lgr)
	if err != nil {
		database.Close()
		return err
	}
	defer deps.Close()
	return fn(deps)
}
