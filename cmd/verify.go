package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ai"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/export"
	"github.com/kozaktomas/face-attendance/internal/verification"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image>",
	Short: "Verify a still image against the registered roster",
	Long: `Send an image file and the current roster to the recognition provider and
print the outcome. With --record a present outcome is written to the
attendance log exactly as the kiosk would.

Example:
  face-attendance verify still.jpg --subject Mathematics
  face-attendance verify still.jpg --subject Physics --record --json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("subject", "", "Class label quoted back in the greeting")
	verifyCmd.Flags().Bool("record", false, "Record attendance when the student is present")
	verifyCmd.Flags().Bool("json", false, "Output the outcome as JSON")
}

// usageReporter is implemented by recognizers that track token usage.
type usageReporter interface {
	GetUsage() ai.Usage
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	subject := mustGetString(cmd, "subject")
	record := mustGetBool(cmd, "record")
	jsonOutput := mustGetBool(cmd, "json")

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	store, err := openStorage(cfg, mustGetBool(cmd, "memory"))
	if err != nil {
		return err
	}
	defer store.backend.Close()

	notifier := newNotifier(cfg)
	if notifier != nil {
		defer notifier.Close()
	}

	state, err := loadState(ctx, cfg, store.backend, notifier)
	if err != nil {
		return err
	}

	verifier, recognizer, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	roster := state.Students()
	if !jsonOutput {
		fmt.Printf("Verifying %s against %d students using %s...\n", args[0], len(roster), recognizer.Name())
	}

	outcome := verifier.Verify(ctx, image, subject, roster)

	if record && outcome.Present() {
		rec := verification.Reconcile(outcome, roster, subject, time.Now())
		if err := state.RecordAttendance(ctx, rec); err != nil {
			return fmt.Errorf("failed to record attendance: %w", err)
		}
		if !jsonOutput {
			fmt.Printf("Recorded attendance for %s (%s)\n", rec.Name, rec.StudentID)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}

	fmt.Printf("\nStatus:  %s\n", outcome.Status)
	fmt.Printf("Message: %s\n", outcome.Message)
	if outcome.IdentifiedName != "" {
		fmt.Printf("Name:    %s\n", outcome.IdentifiedName)
	}
	if outcome.Confidence != nil {
		fmt.Printf("Confidence: %s (%s)\n", export.Percent(*outcome.Confidence), export.Tier(*outcome.Confidence))
	}
	if u, ok := recognizer.(usageReporter); ok {
		usage := u.GetUsage()
		fmt.Printf("\nTokens: %d input, %d output (~$%.4f)\n", usage.InputTokens, usage.OutputTokens, usage.TotalCost)
	}
	return nil
}
