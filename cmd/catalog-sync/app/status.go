package app

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/webspark/catalog-sync/internal/status"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the persisted sync status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}

			syncApp, _, err := buildOneShotApp(cmd)
			if err != nil {
				return err
			}
			defer syncApp.Close()

			st, err := syncApp.Components().SyncCoordinator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load status: %w", err)
			}

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), st)
			case "table":
				return writeStatusTable(cmd.OutOrStdout(), st)
			default:
				return fmt.Errorf("unknown format %q (supported: table, json)", format)
			}
		},
	}
	cmd.Flags().String("format", "table", "Output format (table or json)")
	return cmd
}

func writeStatusTable(w io.Writer, st *status.SyncStatus) error {
	rows := [][]string{
		{"Phase", orDash(string(st.Phase))},
		{"Cycle phase", orDash(st.CyclePhase)},
		{"Message", orDash(st.Message)},
		{"Reason", orDash(st.ConditionReason)},
		{"Last attempt", formatTime(st.LastAttempt)},
		{"Last success", formatTime(st.LastSyncTime)},
		{"Attempts since success", strconv.Itoa(st.AttemptCount)},
		{"Duration", orDash(st.LastDuration)},
		{"Interval (minutes)", strconv.Itoa(st.IntervalMinutes)},
		{"Feed hash", orDash(st.LastSyncHash)},
		{"Total / fetched", fmt.Sprintf("%d / %d", st.Counts.Total, st.Counts.Fetched)},
		{"Skipped / filtered", fmt.Sprintf("%d / %d", st.Counts.Skipped, st.Counts.Filtered)},
		{"Created / updated / failed", fmt.Sprintf("%d / %d / %d", st.Counts.Created, st.Counts.Updated, st.Counts.Failed)},
		{"Evicted / evict failed", fmt.Sprintf("%d / %d", st.Counts.Evicted, st.Counts.EvictFailed)},
		{"Eviction skipped", strconv.FormatBool(st.Counts.EvictionSkipped)},
		{"Interrupted", strconv.FormatBool(st.Counts.Interrupted)},
	}
	for i, msg := range st.RecordErrors {
		rows = append(rows, []string{fmt.Sprintf("Error %d", i+1), msg})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to build status table: %w", err)
	}
	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
