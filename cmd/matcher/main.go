// Command matcher ranks compatible blood donors for a recipient from the
// command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blood-bank-matcher/internal/config"
	"blood-bank-matcher/internal/excel"
	"blood-bank-matcher/internal/models"
	"blood-bank-matcher/internal/services/database"
	"blood-bank-matcher/internal/services/dataset"
	"blood-bank-matcher/internal/services/matcher"
	s3service "blood-bank-matcher/internal/services/s3"
	"blood-bank-matcher/internal/services/ses"
	"blood-bank-matcher/internal/utils"
)

var (
	cfg *config.Config

	// Table overrides shared by every subcommand
	donorsPath     string
	recipientsPath string
	inventoryPath  string
	dataSource     string
)

func main() {
	var err error

	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	rootCmd := &cobra.Command{
		Use:          "matcher",
		Short:        "Blood bank donor matcher",
		Long:         `Ranks compatible, eligible blood donors for a recipient by proximity, group match and inventory shortage`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&donorsPath, "donors", cfg.DonorsPath, "donors table (.csv, .xlsx or s3://bucket/key)")
	rootCmd.PersistentFlags().StringVar(&recipientsPath, "recipients", cfg.RecipientsPath, "recipients table")
	rootCmd.PersistentFlags().StringVar(&inventoryPath, "inventory", cfg.InventoryPath, "inventory table")
	rootCmd.PersistentFlags().StringVar(&dataSource, "source", cfg.DataSource, "table source: csv or postgres")

	rootCmd.AddCommand(createMatchCmd())
	rootCmd.AddCommand(createRecipientsCmd())
	rootCmd.AddCommand(createCheckCmd())
	rootCmd.AddCommand(createDBCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		utils.Sync()
		os.Exit(1)
	}
}

// runConfig returns cfg with the command line overrides applied.
func runConfig() *config.Config {
	run := *cfg
	run.DonorsPath = donorsPath
	run.RecipientsPath = recipientsPath
	run.InventoryPath = inventoryPath
	run.DataSource = strings.ToLower(dataSource)
	return &run
}

// loadTables reads the tables named on the command line. Local files that
// do not exist fall back to the configured default tables.
func loadTables(ctx context.Context) (*dataset.Dataset, error) {
	run := runConfig()

	if run.UsesDatabase() {
		db, err := database.New(ctx, run)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return dataset.LoadFromDatabase(ctx, db)
	}

	paths := dataset.PathsFromConfig(run)
	defaultPaths := dataset.PathsFromConfig(cfg)

	var opts []dataset.Option
	if anyURI(paths, defaultPaths) {
		store, err := s3service.NewService(ctx, run)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dataset.WithStore(store))
	}

	return dataset.NewLoader(opts...).LoadWithFallback(ctx, paths, defaultPaths)
}

func anyURI(sets ...dataset.Paths) bool {
	for _, p := range sets {
		if s3service.IsURI(p.Donors) || s3service.IsURI(p.Recipients) || s3service.IsURI(p.Inventory) {
			return true
		}
	}
	return false
}

// matchReport is the JSON export of one match run.
type matchReport struct {
	Run     *models.MatchRun  `json:"run"`
	Matches []models.MatchRow `json:"matches"`
}

func createMatchCmd() *cobra.Command {
	var (
		recipientID int64
		top         int
		jsonOut     string
		xlsxOut     string
		notify      bool
		notifyTo    string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank donors for one recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ds, err := loadTables(ctx)
			if err != nil {
				return err
			}

			run, err := matcher.NewService().MatchDonors(ds.Donors, ds.Recipients, ds.Inventory, recipientID, top)
			if err != nil {
				return err
			}

			rows := run.Rows(ds.Donors)
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No eligible donors found under current rules.")
			}
			for _, r := range run.Results {
				fmt.Fprintf(out, "donor=%d score=%.3f distance_km=%.1f %s\n",
					r.DonorID, r.Score, r.DistanceKm, r.ExplanationText())
			}

			if jsonOut != "" {
				if err := writeJSONReport(ctx, jsonOut, matchReport{Run: run, Matches: rows}); err != nil {
					return err
				}
			}

			if xlsxOut != "" {
				if err := excel.WriteMatchRows(xlsxOut, rows, ""); err != nil {
					return fmt.Errorf("failed to write workbook: %w", err)
				}
			}

			if notify {
				return sendReport(ctx, notifyTo, ds, run)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&recipientID, "recipient", 0, "recipient id")
	cmd.Flags().IntVar(&top, "top", cfg.DefaultTopN, "number of donors to return")
	cmd.Flags().StringVar(&jsonOut, "json", "", "write the run as JSON to a file or s3://bucket/key")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "write ranked donors to an .xlsx workbook")
	cmd.Flags().BoolVar(&notify, "notify", false, "email the ranked donors via SES")
	cmd.Flags().StringVar(&notifyTo, "to", "", "report recipient address (default NOTIFY_EMAIL)")
	_ = cmd.MarkFlagRequired("recipient")

	return cmd
}

func writeJSONReport(ctx context.Context, location string, report matchReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if s3service.IsURI(location) {
		store, err := s3service.NewService(ctx, cfg)
		if err != nil {
			return err
		}
		return store.Upload(ctx, location, data, "application/json")
	}

	if err := os.WriteFile(location, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func sendReport(ctx context.Context, to string, ds *dataset.Dataset, run *models.MatchRun) error {
	if to == "" {
		to = cfg.NotifyEmail
	}
	if to == "" {
		return fmt.Errorf("no report address: set --to or NOTIFY_EMAIL")
	}

	mailer, err := ses.NewService(ctx, cfg)
	if err != nil {
		return err
	}

	recipient, _ := models.FindRecipient(ds.Recipients, run.RecipientID)
	result, err := mailer.SendMatchReport(ctx, to, recipient, run, ds.Donors)
	if err != nil {
		return err
	}

	utils.GetLogger().Info("Match report sent",
		zap.String("request_id", run.RequestID),
		zap.String("message_id", result.MessageID),
	)
	return nil
}

func createRecipientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recipients",
		Short: "List recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadTables(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tGROUP\tUNITS NEEDED\tLAT\tLON")
			for _, r := range ds.Recipients {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.4f\t%.4f\n",
					r.ID, r.Name, r.Group(), r.UnitsNeeded, r.Location.Lat, r.Location.Lon)
			}
			return w.Flush()
		},
	}
}

func createCheckCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "check [filename]",
		Short: "Validate a table's columns and rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			table := utils.TableKind(kind)
			result, err := utils.ValidateCSVStructure(string(content), table)
			if err != nil {
				return err
			}

			parser := utils.NewCSVParser()
			var rowErrs []error
			switch table {
			case utils.TableDonors:
				_, rowErrs = parser.ParseDonors(string(content))
			case utils.TableRecipients:
				_, rowErrs = parser.ParseRecipients(string(content))
			case utils.TableInventory:
				_, rowErrs = parser.ParseInventory(string(content))
			}
			for _, e := range rowErrs {
				result.Errors = append(result.Errors, e.Error())
			}
			result.Valid = result.Valid && len(rowErrs) == 0

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}

			if !result.Valid {
				return fmt.Errorf("%s: %s table is invalid", args[0], kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(utils.TableDonors), "table kind: donors, recipients or inventory")
	return cmd
}

func createDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the Postgres table store",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the donors, recipients and inventory tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema ready")
			return nil
		},
	})

	dbCmd.AddCommand(&cobra.Command{
		Use:   "load",
		Short: "Load the file tables into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dataSource = config.SourceCSV
			ds, err := loadTables(ctx)
			if err != nil {
				return err
			}

			db, err := database.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}

			donors, recipients, err := dataset.SaveToDatabase(ctx, db, ds)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Donors: %d loaded, %d failed\n", donors.InsertedCount, donors.FailedCount)
			fmt.Fprintf(out, "Recipients: %d loaded, %d failed\n", recipients.InsertedCount, recipients.FailedCount)
			fmt.Fprintf(out, "Inventory: %d rows\n", len(ds.Inventory))
			for _, e := range append(donors.Errors, recipients.Errors...) {
				fmt.Fprintln(out, "  "+e)
			}
			return nil
		},
	})

	return dbCmd
}
