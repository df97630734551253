package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  `Display the number of records and the latest entry of every collection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close() //nolint: errcheck

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get database stats: %w", err)
		}

		fmt.Println("Database Statistics:")
		for _, s := range stats {
			latest := "never"
			if s.LatestAt != nil {
				latest = humanize.Time(*s.LatestAt)
			}
			fmt.Printf("  %-20s %8s records, latest %s\n", s.Collection, humanize.Comma(s.Count), latest)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
