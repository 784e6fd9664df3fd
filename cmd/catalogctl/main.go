package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"catalog-matcher/internal/catalog"
	"catalog-matcher/internal/llm"
	"catalog-matcher/internal/match"
	"catalog-matcher/internal/storage"
	"catalog-matcher/internal/vectorstore"
)

var (
	dbPath    string
	rulesFile string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Catalog snapshot and matching tools",
	Long: `catalogctl seeds the catalog snapshot database and runs one-off match
queries against it without starting the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	defaultDB := os.Getenv("CATALOG_DB_PATH")
	if defaultDB == "" {
		defaultDB = "./data/catalog.db"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "catalog snapshot database")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", os.Getenv("MATCH_RULES_FILE"), "match rules YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newMatchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openRepo() (*storage.CatalogRepo, func(), error) {
	db, err := storage.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return storage.NewCatalogRepo(db), func() { _ = db.Close() }, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load a catalog CSV export into the snapshot database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()

			records, err := storage.ReadProductsCSV(f)
			if err != nil {
				return err
			}

			repo, closeDB, err := openRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			if err := repo.InsertProducts(ctx, records); err != nil {
				return err
			}
			total, err := repo.CountProducts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows, snapshot now holds %d products\n", len(records), total)
			return nil
		},
	}
}

func newMatchCmd() *cobra.Command {
	var (
		query      match.MatchQuery
		allStatus  bool
		dims       int
		noSemantic bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match one product reference against the snapshot",
		Long: `match builds the catalog index in memory and prints the ranked candidates as
JSON. Semantic matching uses the offline feature-hashing embedder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query.RequireObsoleteOnly = !allStatus

			rules, err := match.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			var embedder llm.Embedder
			opts := catalog.BuildOptions{Canonicalize: match.NewNormalizer(rules).CanonicalRange}
			if !noSemantic {
				embedder = llm.NewHashEmbedder(dims)
				opts.Embedder = embedder
				opts.Vectors = vectorstore.NewMemoryStore()
			}

			holder := catalog.NewHolder(catalog.NewLoader(repo, opts))
			if _, err := holder.Reload(ctx); err != nil {
				return err
			}

			engine, err := match.NewEngine(holder, rules, embedder, match.Config{})
			if err != nil {
				return err
			}
			result, err := engine.Match(ctx, query)
			if err != nil {
				return fmt.Errorf("%s: %w", match.CodeOf(err), err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&query.RangeLabel, "range", "", "range label (required)")
	cmd.Flags().StringVar(&query.SubrangeLabel, "subrange", "", "subrange or model label")
	cmd.Flags().StringVar(&query.ServiceLineHint, "product-line", "", "service line hint, e.g. secure-power")
	cmd.Flags().StringVar(&query.DescriptionText, "description", "", "free text product description")
	cmd.Flags().StringVar(&query.DeviceType, "device-type", "", "device type filter, e.g. UPS")
	cmd.Flags().StringVar(&query.TechnicalSpecs.Voltage, "voltage", "", "voltage, e.g. 12-17.5kV")
	cmd.Flags().StringVar(&query.TechnicalSpecs.Current, "current", "", "current, e.g. 630A")
	cmd.Flags().StringVar(&query.TechnicalSpecs.Power, "power", "", "power, e.g. 250kVA")
	cmd.Flags().StringVar(&query.TechnicalSpecs.Frequency, "frequency", "", "frequency, e.g. 50/60Hz")
	cmd.Flags().IntVar(&query.MaxResults, "max-results", 0, "truncate to this many candidates (0 uses the default)")
	cmd.Flags().BoolVar(&allStatus, "all-statuses", false, "include products that are still commercialised")
	cmd.Flags().IntVar(&dims, "dims", 256, "feature-hashing embedding size")
	cmd.Flags().BoolVar(&noSemantic, "no-semantic", false, "skip the semantic strategy")
	_ = cmd.MarkFlagRequired("range")

	return cmd
}
