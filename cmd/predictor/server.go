package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/purchaseml/purchase-predictor/pkg/archive"
)

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the deployment directory and its archives",
	}

	cmd.AddCommand(newServerListCmd())
	cmd.AddCommand(newServerCurrentCmd())
	cmd.AddCommand(newServerStructureCmd())
	cmd.AddCommand(newServerCleanCmd())
	cmd.AddCommand(newServerFreshCmd())

	return cmd
}

func openStore() (*archive.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return archive.NewStore(cfg.Server.Dir)
}

func newServerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived deployments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(os.Stdout, "No archived deployments")
				return nil
			}
			for _, e := range entries {
				line := e.Name
				if e.Info != nil && e.Info.DeploymentType != "" {
					line += fmt.Sprintf("  (%s)", e.Info.DeploymentType)
				}
				if e.Info != nil && e.Info.Reason != "" {
					line += "  " + e.Info.Reason
				}
				fmt.Fprintln(os.Stdout, line)
			}
			return nil
		},
	}
}

func newServerCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current deployment record",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			info, err := store.Current()
			if err != nil {
				return err
			}
			if info == nil {
				fmt.Fprintln(os.Stdout, "No current deployment")
				return nil
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}
}

func newServerStructureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "structure",
		Short: "Print the deployment directory tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			tree, err := store.Structure()
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, tree)
			return nil
		},
	}
}

func newServerCleanCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove old archives, keeping the most recent ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			removed, err := store.Trim(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Removed %d archives, kept the newest %d\n", removed, keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", archive.DefaultKeep, "Number of archives to keep")

	return cmd
}

func newServerFreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fresh",
		Short: "Archive the current deployment and start empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			entry, err := store.Fresh("manual-cleanup")
			if err != nil {
				return err
			}
			if entry == nil {
				fmt.Fprintln(os.Stdout, "Deployment directory already empty")
				return nil
			}
			fmt.Fprintf(os.Stdout, "Archived current deployment as %s\n", entry.Name)
			return nil
		},
	}
}
