package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/cryptoassets-importer/internal/config"
	"github.com/rshade/cryptoassets-importer/internal/engine/cache"
)

// NewCacheClearCmd creates the cache clear command.
func NewCacheClearCmd() *cobra.Command {
	var expiredOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached registry responses",
		Example: `  # Remove every cached response
  assetimport cache clear

  # Only remove expired entries
  assetimport cache clear --expired`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			store, err := cache.NewFileStore(cfg.Cache.Directory, true, cfg.Cache.TTL)
			if err != nil {
				return err
			}

			var removed int
			if expiredOnly {
				removed, err = store.CleanupExpired()
			} else {
				removed, err = store.Clear()
			}
			if err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}

			remaining, err := store.Count()
			if err != nil {
				return fmt.Errorf("counting cache entries: %w", err)
			}
			cmd.Printf("Removed %d cache entries from %s (%d remaining)\n", removed, store.Directory(), remaining)
			return nil
		},
	}

	cmd.Flags().BoolVar(&expiredOnly, "expired", false, "only remove expired entries")

	return cmd
}
