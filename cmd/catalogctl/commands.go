package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/bootstrap"
	"github.com/yigit/engnotes/internal/pkg/export"
)

func treeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the whole catalog as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(*configPath, func(deps *bootstrap.Dependencies) error {
				degrees, err := deps.CatalogService.Tree(cmd.Context())
				if err != nil {
					return err
				}
				renderTree(cmd.OutOrStdout(), degrees)
				return nil
			})
		},
	}
}

func reconcileCmd(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair orphan records, dangling links and orphan blobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(*configPath, func(deps *bootstrap.Dependencies) error {
				report, err := deps.ReconcileService.Run(cmd.Context(), dryRun)
				if err != nil {
					return err
				}
				renderReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report findings without changing anything")
	return cmd
}

func exportCmd(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(*configPath, func(deps *bootstrap.Dependencies) error {
				degrees, err := deps.CatalogService.Tree(cmd.Context())
				if err != nil {
					return err
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				if err := export.Write(f, degrees); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Exported %d degrees to %s\n", len(degrees), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "catalog.xlsx", "Output file")
	return cmd
}

func createAdminCmd(configPath *string) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and --password (or ADMIN_PASSWORD) are required")
			}
			return withDeps(*configPath, func(deps *bootstrap.Dependencies) error {
				user, err := deps.AuthService.CreateUser(cmd.Context(), username, password, models.RoleAdmin)
				if err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Admin %s created (id %s)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password")
	return cmd
}

func deleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <degree|semester|subject|note> <id>",
		Short: "Delete a record with everything below it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseKind(args[0])
			if err != nil {
				return err
			}
			return withDeps(*configPath, func(deps *bootstrap.Dependencies) error {
				result, err := deps.CatalogService.Delete(cmd.Context(), kind, args[1])
				if err != nil {
					return err
				}
				renderCascade(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}
