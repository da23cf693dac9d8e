package main

import (
	"fmt"
	"strings"

	"github.com/cat-engine/backend/internal/database"
	"github.com/cat-engine/backend/internal/itembank"
	"github.com/spf13/cobra"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Inspect and import item banks",
}

var bankImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a CSV item bank into the configured SQL store",
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, _ := cmd.Flags().GetString("csv")
		src := bankSource(cmd)
		if src.Kind != itembank.SourcePostgres && src.Kind != itembank.SourceSQLite {
			return fmt.Errorf("import needs a sql source, got %q", src.Kind)
		}

		bank, err := itembank.LoadCSV(csvPath)
		if err != nil {
			return fmt.Errorf("load csv: %w", err)
		}

		ctx := cmd.Context()
		driver := database.Driver(src.Kind)
		if err := database.Migrate(ctx, driver, src.DSN); err != nil {
			return err
		}
		db, err := database.Connect(ctx, driver, src.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		store := itembank.NewStore(db, driver)
		if err := store.Replace(ctx, bank); err != nil {
			return fmt.Errorf("import items: %w", err)
		}
		n, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d items from %s into %s store.\n", n, csvPath, src.Kind)
		return nil
	},
}

var bankShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarise the configured item bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		src := bankSource(cmd)

		bank, err := itembank.Open(cmd.Context(), src)
		if err != nil {
			return fmt.Errorf("open item bank: %w", err)
		}
		bMin, bMax := bank.DifficultyBounds()
		fmt.Printf("Source: %s\nItems: %d\nDifficulty range: [%.3f, %.3f]\n\n", src.Kind, bank.Len(), bMin, bMax)

		fmt.Printf("%-12s  %8s  %8s  %6s  %6s\n", "ID", "a", "b", "g", "u")
		fmt.Println(strings.Repeat("─", 48))
		for i := 0; i < bank.Len() && (limit <= 0 || i < limit); i++ {
			it := bank.At(i)
			fmt.Printf("%-12s  %8.3f  %8.3f  %6.3f  %6.3f\n", it.ID, it.A, it.B, it.G, it.U)
		}
		if limit > 0 && bank.Len() > limit {
			fmt.Printf("... %d more\n", bank.Len()-limit)
		}
		return nil
	},
}

// bankSource returns the configured bank source with flag overrides applied.
func bankSource(cmd *cobra.Command) itembank.Source {
	src := cfg.ItemBank
	if s, _ := cmd.Flags().GetString("source"); s != "" {
		src.Kind = s
	}
	if p, _ := cmd.Flags().GetString("path"); p != "" {
		src.Path = p
	}
	if d, _ := cmd.Flags().GetString("dsn"); d != "" {
		src.DSN = d
	}
	return src
}

func init() {
	bankCmd.PersistentFlags().String("source", "", "Bank source: csv, postgres or sqlite (overrides config)")
	bankCmd.PersistentFlags().String("path", "", "CSV path for the csv source (overrides config)")
	bankCmd.PersistentFlags().String("dsn", "", "Database DSN for sql sources (overrides config)")

	bankImportCmd.Flags().String("csv", "", "CSV file to import")
	_ = bankImportCmd.MarkFlagRequired("csv")
	bankShowCmd.Flags().Int("limit", 20, "Maximum items to list (0 for all)")

	bankCmd.AddCommand(bankImportCmd)
	bankCmd.AddCommand(bankShowCmd)
}
