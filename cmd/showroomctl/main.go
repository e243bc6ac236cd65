// Command showroomctl is the offline ops console for a showroom instance.
// It opens the catalog store directly, so run it against a stopped server or
// a copy of the database.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/eringen/showroom/catalog"
)

var (
	dbPath   string
	capacity int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "showroomctl",
		Short: "Showroom catalog operations",
		Long: `showroomctl inspects and maintains the showroom catalog store:
storage quota status, eviction passes and listing dumps.`,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "data/showroom.db", "path to the catalog database")
	rootCmd.PersistentFlags().Int64Var(&capacity, "capacity", 5<<20, "logical storage quota in bytes")

	rootCmd.AddCommand(statsCmd(), evictCmd(), listCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openRepo() (*catalog.KVStore, *catalog.Repository, error) {
	store, err := catalog.OpenKV(dbPath, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	repo, err := catalog.NewRepository(store, capacity, log)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, repo, nil
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage quota status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := repo.StorageInfo()
			if err != nil {
				return err
			}
			frac, err := repo.UsageFraction()
			if err != nil {
				return err
			}

			items := repo.Items(catalog.Filter{})
			images := 0
			for _, it := range items {
				images += len(it.Images)
			}

			fmt.Printf("items:    %d\n", len(items))
			fmt.Printf("images:   %d\n", images)
			fmt.Printf("used:     %d / %d bytes\n", info.UsedBytes, info.CapacityBytes)

			usage := fmt.Sprintf("usage:    %.1f%%", frac*100)
			switch {
			case frac > catalog.EvictionHighWater:
				color.Red("%s (eviction recommended)", usage)
			case frac > 0.5:
				color.Yellow("%s", usage)
			default:
				color.Green("%s", usage)
			}
			return nil
		},
	}
}

func evictCmd() *cobra.Command {
	var strategy string
	var max int
	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Run an eviction pass to restore storage headroom",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer store.Close()

			var removed int
			switch strategy {
			case "cap":
				removed, err = repo.EvictCapImages(max)
			case "invalid":
				removed, err = repo.EvictInvalidImages()
			default:
				return fmt.Errorf("unknown strategy %q (want cap or invalid)", strategy)
			}
			if err != nil {
				return err
			}
			color.Green("removed %d images", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "cap", "eviction strategy: cap or invalid")
	cmd.Flags().IntVar(&max, "max", catalog.DefaultEvictionCap, "image cap per item for the cap strategy")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Dump the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, repo, err := openRepo()
			if err != nil {
				return err
			}
			defer store.Close()

			bold := color.New(color.Bold)
			for _, it := range repo.Items(catalog.Filter{}) {
				bold.Printf("%d %s %s", it.Year, it.Brand, it.Model)
				fmt.Printf("  $%.0f  %s/%s  %d images  [%s]\n",
					it.Price, it.Category, it.Condition, len(it.Images), it.ID)
			}
			return nil
		},
	}
}
