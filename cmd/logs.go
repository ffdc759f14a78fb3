package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/export"
	"github.com/kozaktomas/face-attendance/internal/notify"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List the attendance log",
	Long: `List attendance records newest first. Filters match the admin log screen:
--query matches names (case and accent insensitive) or student IDs,
--subject matches class labels and --date accepts 1/2/2006 or 2006-01-02.`,
	RunE: runLogsList,
}

var logsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the (filtered) attendance log as CSV",
	RunE:  runLogsExport,
}

var logsFollowCmd = &cobra.Command{
	Use:   "follow",
	Short: "Print attendance events as they are recorded",
	Long: `Consume the Redis list the server publishes recorded attendance to.
Requires REDIS_ADDR. Each event is removed from the list when printed.`,
	RunE: runLogsFollow,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsExportCmd)
	logsCmd.AddCommand(logsFollowCmd)

	for _, c := range []*cobra.Command{logsCmd, logsExportCmd} {
		c.Flags().String("query", "", "Filter by name or student ID")
		c.Flags().String("subject", "", "Filter by subject")
		c.Flags().String("date", "", "Filter by date")
	}
	logsCmd.Flags().Int("limit", 0, "Show at most N records (0 = all)")
	logsExportCmd.Flags().StringP("output", "o", "", "Output file (default attendance_logs_<date>.csv, - for stdout)")
	logsFollowCmd.Flags().Duration("poll", 5*time.Second, "How long each blocking read waits")
}

func logFilterFromFlags(cmd *cobra.Command) session.LogFilter {
	return session.LogFilter{
		Query:   mustGetString(cmd, "query"),
		Subject: mustGetString(cmd, "subject"),
		Date:    mustGetString(cmd, "date"),
	}
}

func writeLogTable(out io.Writer, records []database.AttendanceRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tSTUDENT ID\tNAME\tSUBJECT\tSTATUS\tCONFIDENCE")
	fmt.Fprintln(w, "----\t----\t----------\t----\t-------\t------\t----------")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s (%s)\n",
			r.Date, r.Time, r.StudentID, r.Name, r.Subject, r.Status,
			export.Percent(r.Confidence), export.Tier(r.Confidence))
	}
	w.Flush()
}

func runLogsList(cmd *cobra.Command, args []string) error {
	state, closeFn, err := openRosterState(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	records := state.FilterLogs(logFilterFromFlags(cmd))
	total := len(records)
	if limit := mustGetInt(cmd, "limit"); limit > 0 && limit < total {
		records = records[:limit]
	}

	if total == 0 {
		fmt.Println("No attendance records found.")
		return nil
	}

	writeLogTable(os.Stdout, records)
	fmt.Printf("\nShowing %d of %d records (%d in log)\n", len(records), total, len(state.Logs()))
	return nil
}

func runLogsExport(cmd *cobra.Command, args []string) error {
	state, closeFn, err := openRosterState(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	records := state.FilterLogs(logFilterFromFlags(cmd))

	output := mustGetString(cmd, "output")
	if output == "-" {
		return export.WriteCSV(os.Stdout, records)
	}
	if output == "" {
		output = export.Filename(time.Now())
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := export.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf("Exported %d records to %s\n", len(records), output)
	return nil
}

func runLogsFollow(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Redis.Addr == "" {
		return errors.New("REDIS_ADDR environment variable is required")
	}
	poll := mustGetDuration(cmd, "poll")

	events := notify.NewRedis(cfg.Redis.Addr, cfg.Redis.Key)
	defer events.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !events.Healthy(ctx) {
		return fmt.Errorf("cannot reach redis at %s", cfg.Redis.Addr)
	}
	fmt.Printf("Following %s on %s (Ctrl+C to stop)\n", cfg.Redis.Key, cfg.Redis.Addr)

	for {
		ev, err := events.Next(ctx, poll)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
			time.Sleep(time.Second)
			continue
		}
		if ev == nil {
			continue
		}
		r := ev.Record
		fmt.Printf("[%s] %s %s (%s) %s, %s, %s\n",
			ev.RecordedAt.Local().Format(time.DateTime), r.Status, r.Name, r.StudentID,
			r.Subject, r.Date+" "+r.Time, export.Percent(r.Confidence))
	}
}
