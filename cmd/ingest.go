package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tauron-farm/tauron/internal/ingest"
)

var (
	ingestFilePath string
	ingestFormat   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest an observation file into the herd log",
	Long:  "Parses a CSV export or a milking parlor XLSX export and applies every valid row. Malformed rows are reported and skipped; the rest still land.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initFarm(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var (
			records   []ingest.Record
			rowErrors []ingest.RowError
		)
		format := ingestFormat
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(ingestFilePath)), ".")
		}
		switch format {
		case "xlsx":
			records, rowErrors, err = ingest.ParseParlorXLSX(ingestFilePath)
		case "csv":
			f, openErr := os.Open(ingestFilePath)
			if openErr != nil {
				return eris.Wrap(openErr, "open observation file")
			}
			defer f.Close()
			records, rowErrors, err = ingest.ParseCSV(f)
		default:
			return eris.Errorf("unsupported format %q (want csv or xlsx)", format)
		}
		if err != nil {
			return err
		}

		result := env.Gateway.ApplyBatch(ctx, records)
		for _, re := range rowErrors {
			zap.L().Warn("skipped row",
				zap.Int("row", re.Row),
				zap.String("reason", re.Reason),
			)
		}
		for _, re := range result.Errors {
			zap.L().Warn("rejected row",
				zap.Int("row", re.Row),
				zap.String("reason", re.Reason),
			)
		}

		zap.L().Info("ingest complete",
			zap.String("file", ingestFilePath),
			zap.Int("rows_applied", result.RowsApplied),
			zap.Int("rows_skipped", len(rowErrors)+len(result.Errors)),
			zap.Int("cows_updated", len(result.CowsUpdated)),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFilePath, "file", "", "path to CSV or XLSX file (required)")
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "", "file format: csv or xlsx (default from extension)")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}
