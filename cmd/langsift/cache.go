package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"langsift/internal/storage"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the classification cache",
		Long:  "Manage the classification cache stored in .langsift/cache.db",
	}

	var all bool
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove expired and stale cache entries",
		Long: `Remove entries past their TTL and entries written under a different rule
set. With --all, remove every entry.

Examples:
  langsift cache purge
  langsift cache purge --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			compiled, err := a.loadRules()
			if err != nil {
				return err
			}
			db, err := storage.Open(a.root, a.logger)
			if err != nil {
				return fmt.Errorf("failed to open cache: %w", err)
			}
			defer db.Close()

			cache := storage.NewCache(db, compiled.Fingerprint, time.Duration(a.cfg.Cache.TtlSeconds)*time.Second)
			if all {
				if err := cache.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
				return nil
			}

			n, err := cache.Purge(cmd.Context())
			if err != nil {
				return err
			}
			remaining, err := cache.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries, %d remaining\n", n, remaining)
			return nil
		},
	}
	purgeCmd.Flags().BoolVar(&all, "all", false, "Remove every entry")

	cmd.AddCommand(purgeCmd)
	return cmd
}
