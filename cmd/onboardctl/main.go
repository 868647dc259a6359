package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "onboardctl",
		Short: "Drive the seller onboarding wizard against the marketplace",
		Long: `onboardctl resumes, advances and inspects a seller's onboarding wizard.

Every command reloads the wizard from the marketplace first, so the
printed state always reflects what the marketplace holds.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Seller user id")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text|json")
	_ = rootCmd.MarkPersistentFlagRequired("user")

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Load the wizard and print where the seller resumes",
		Args:  cobra.NoArgs,
		RunE:  runResume,
	}

	completeCmd := &cobra.Command{
		Use:   "complete <step>",
		Short: "Complete a wizard step with a JSON payload",
		Long: `Complete step 1 (business), 2 (legal) or 3 (social) with the JSON
payload read from --file. Use --file - to read from stdin. Step 4 submits.`,
		Args: cobra.ExactArgs(1),
		RunE: runComplete,
	}
	completeCmd.Flags().StringP("file", "f", "", "JSON payload file, or - for stdin")

	skipCmd := &cobra.Command{
		Use:   "skip <step>",
		Short: "Skip the optional legal (2) or social (3) step",
		Args:  cobra.ExactArgs(1),
		RunE:  runSkip,
	}

	backCmd := &cobra.Command{
		Use:   "back",
		Short: "Move the wizard one step back",
		Args:  cobra.NoArgs,
		RunE:  runBack,
	}

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit the application for review",
		Args:  cobra.NoArgs,
		RunE:  runSubmit,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the application status",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	statusCmd.Flags().BoolP("watch", "w", false, "Keep polling until the review is decided")
	statusCmd.Flags().Duration("interval", 0, "Polling interval (default: onboarding.poll_interval)")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded wizard transitions (requires the audit trail)",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntP("limit", "n", 20, "Number of events to show")

	rootCmd.AddCommand(resumeCmd, completeCmd, skipCmd, backCmd, submitCmd, statusCmd, historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
