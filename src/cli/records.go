package cli

import (
	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/gateway"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/report"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
)

func (a *app) resultsCommand() *cobra.Command {
	var (
		severity, status, subject, orderBy, format string
		limit, offset                              int
		ascending                                  bool
	)
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List stored scan results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			f, err := gateway.FilterFrom(severity, status, subject, orderBy, limit, offset, !ascending)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			recs, err := svc.Store.Query(cmd.Context(), f)
			if err != nil {
				return err
			}
			switch format {
			case formatJSON:
				if recs == nil {
					recs = []store.Record{}
				}
				return report.JSON(cmd.OutOrStdout(), recs)
			case formatSARIF:
				return report.SARIF(cmd.OutOrStdout(), recs)
			default:
				return report.RecordsTable(cmd.OutOrStdout(), recs)
			}
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&severity, "severity", "", "only this severity")
	fl.StringVar(&status, "status", "", "only this status")
	fl.StringVar(&subject, "subject", "", "only this subject")
	fl.StringVar(&orderBy, "order-by", string(store.OrderScannedAt), "scanned_at, severity, size, subject_id or id")
	fl.BoolVar(&ascending, "asc", false, "sort ascending")
	fl.IntVar(&limit, "limit", 50, "maximum records")
	fl.IntVar(&offset, "offset", 0, "records to skip")
	fl.StringVarP(&format, "format", "o", formatTable, "output format: table, json or sarif")
	return cmd
}

func (a *app) statsCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count stored results by severity and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			st, err := svc.Store.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			if format == formatJSON {
				return report.JSON(cmd.OutOrStdout(), st)
			}
			return report.StatisticsTable(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", formatTable, "output format: table or json")
	return cmd
}

// statusCommand builds quarantine, delete and resolve, which differ only
// in the target status. Files are taken from the stored record.
func (a *app) statusCommand(use, short string, status store.Status) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			rec, err := svc.SetStatus(cmd.Context(), args[0], status, notes)
			if err != nil {
				return err
			}
			return report.RecordsTable(cmd.OutOrStdout(), []store.Record{rec})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "operator notes stored with the record")
	return cmd
}

func (a *app) quarantineCommand() *cobra.Command {
	return a.statusCommand("quarantine <subject>", "Move a subject's file into the quarantine directory", store.StatusQuarantined)
}

func (a *app) deleteCommand() *cobra.Command {
	return a.statusCommand("delete <subject>", "Delete a subject's file and mark its record deleted", store.StatusDeleted)
}

func (a *app) resolveCommand() *cobra.Command {
	return a.statusCommand("resolve <subject>", "Mark a finding reviewed and safe to keep", store.StatusResolved)
}
