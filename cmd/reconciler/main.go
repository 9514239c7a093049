package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "reconciler",
		Short:         "Reconcile vendor statements against the internal ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(importLedgerCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(ingestStatementCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(transitionCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(confirmPaymentCmd())
	rootCmd.AddCommand(riskReportCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// printJSON writes v to stdout. Logs go to stderr so the output stays
// machine readable.
func printJSON(cmd *cobra.Command, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}
