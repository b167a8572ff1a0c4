package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"karaluxer/internal/cache"
	"karaluxer/internal/paths"
	"karaluxer/internal/tui"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the kara.moe download cache",
	}

	cmd.AddCommand(newCacheListCmd())
	cmd.AddCommand(newCacheCleanCmd())
	return cmd
}

func openCache() (*cache.Store, error) {
	dir, err := paths.GlobalCacheDir()
	if err != nil {
		return nil, err
	}
	return cache.New(dir, nil), nil
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached media files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache()
			if err != nil {
				return err
			}
			entries, err := store.Entries()
			if err != nil {
				return err
			}
			if outputJSON {
				if entries == nil {
					entries = []cache.Entry{}
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			if len(entries) == 0 {
				cmd.Println("Cache is empty.")
				return nil
			}
			bold := lipgloss.NewStyle().Bold(true)
			var total int64
			cmd.Println(bold.Render(fmt.Sprintf("%-36s  %-40s  %10s  %s", "KARA", "FILE", "SIZE", "RETRIEVED")))
			for _, e := range entries {
				total += e.SizeBytes
				cmd.Printf("%-36s  %-40s  %10s  %s\n",
					e.KaraID,
					tui.TruncateWithEllipsis(e.Filename, 40),
					humanize.Bytes(uint64(e.SizeBytes)),
					humanize.Time(e.RetrievedAt),
				)
			}
			cmd.Printf("%d files, %s\n", len(entries), humanize.Bytes(uint64(total)))
			return nil
		},
	}
}

func newCacheCleanCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete cached media files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--older-than must be >= 0 (got %s)", olderThan)
			}
			store, err := openCache()
			if err != nil {
				return err
			}
			result, err := store.Clean(olderThan)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			cmd.Printf("Removed %d files (%s)\n", result.Removed, humanize.Bytes(uint64(result.Bytes)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete files downloaded before this long ago, e.g. 720h (default: everything)")
	return cmd
}
