package main

import (
	"fmt"
	"strings"

	"doc-reconciliation/internal/domain"
	"doc-reconciliation/internal/gateway"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// withApp wires dependencies for the duration of one command.
func withApp(run func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the document, result and ledger tables",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if err := a.store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return printJSON(cmd, map[string]string{"status": "migrated"})
		}),
	}
}

func importLedgerCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-ledger",
		Short: "Load invoices, payments and purchase orders from a ledger export",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			ctx := cmd.Context()
			snap, err := gateway.NewJSONDocumentReader().ReadLedger(ctx, file)
			if err != nil {
				return err
			}
			for _, inv := range snap.Invoices {
				if err := a.store.SaveInvoice(ctx, inv); err != nil {
					return fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, err)
				}
			}
			for _, p := range snap.Payments {
				if err := a.store.SavePayment(ctx, p); err != nil {
					return fmt.Errorf("payment %s: %w", p.PaymentReference, err)
				}
			}
			for _, po := range snap.PurchaseOrders {
				if err := a.store.SavePurchaseOrder(ctx, po); err != nil {
					return fmt.Errorf("purchase order %s: %w", po.PONumber, err)
				}
			}
			return printJSON(cmd, map[string]int{
				"invoices":        len(snap.Invoices),
				"payments":        len(snap.Payments),
				"purchase_orders": len(snap.PurchaseOrders),
			})
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the ledger export JSON (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func ingestCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest extracted documents from a JSON file",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			ctx := cmd.Context()
			docs, err := gateway.NewJSONDocumentReader().ReadDocuments(ctx, file)
			if err != nil {
				return err
			}
			uc := a.ingestion()
			stored := make([]*domain.ProcessedDocument, 0, len(docs))
			for _, doc := range docs {
				out, err := uc.Ingest(ctx, doc)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", doc.SourceRef, err)
				}
				stored = append(stored, out)
			}
			return printJSON(cmd, stored)
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the extractor output JSON (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func ingestStatementCmd() *cobra.Command {
	var (
		csvPath       string
		vendor        string
		statementDate string
		balance       string
		confidence    string
	)
	cmd := &cobra.Command{
		Use:   "ingest-statement",
		Short: "Ingest a vendor statement from a CSV export",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			ctx := cmd.Context()
			var vendorBalance *decimal.Decimal
			if balance != "" {
				d, err := decimal.NewFromString(strings.ReplaceAll(balance, ",", ""))
				if err != nil {
					return fmt.Errorf("invalid --vendor-balance %q: %w", balance, err)
				}
				vendorBalance = &d
			}

			statement, err := gateway.NewCSVStatementReader().ReadStatement(ctx, csvPath, vendor, statementDate, vendorBalance)
			if err != nil {
				return err
			}
			doc := &domain.ProcessedDocument{
				Type:          domain.DocumentTypeVendorStatement,
				Source:        domain.SourceUpload,
				SourceRef:     csvPath,
				ExtractedData: statement,
				Confidence:    domain.Confidence(confidence),
			}
			out, err := a.ingestion().Ingest(ctx, doc)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		}),
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "Path to the statement CSV (required)")
	cmd.Flags().StringVar(&vendor, "vendor", "", "Vendor name on the statement (required)")
	cmd.Flags().StringVar(&statementDate, "statement-date", "", "Statement date (YYYY-MM-DD) (required)")
	cmd.Flags().StringVar(&balance, "vendor-balance", "", "Closing balance claimed by the vendor, defaults to the last line's balance")
	cmd.Flags().StringVar(&confidence, "confidence", string(domain.ConfidenceHigh), "Extraction confidence (high, medium, low)")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("vendor")
	_ = cmd.MarkFlagRequired("statement-date")
	return cmd
}

func linkCmd() *cobra.Command {
	var id, other string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Relate two documents in both directions",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			if err := a.ingestion().LinkDocuments(cmd.Context(), id, other); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"document": id, "linked_with": other})
		}),
	}
	cmd.Flags().StringVarP(&id, "document", "d", "", "Document id (required)")
	cmd.Flags().StringVar(&other, "with", "", "Document id to link to (required)")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("with")
	return cmd
}

func reconcileCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile an extracted vendor statement and record the result",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			uc, err := a.reconciliation(cmd.Context())
			if err != nil {
				return err
			}
			res, err := uc.Reconcile(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("reconciliation failed: %w", err)
			}
			return printJSON(cmd, res)
		}),
	}
	cmd.Flags().StringVarP(&id, "document", "d", "", "Statement document id (required)")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func evaluateCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Preview a statement reconciliation without writing anything",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			uc, err := a.reconciliation(cmd.Context())
			if err != nil {
				return err
			}
			res, err := uc.EvaluateDocument(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
	cmd.Flags().StringVarP(&id, "document", "d", "", "Statement document id (required)")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func historyCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded reconciliation results for a statement, newest first",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			results, err := a.store.ListReconciliations(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, results)
		}),
	}
	cmd.Flags().StringVarP(&id, "document", "d", "", "Statement document id (required)")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func transitionCmd() *cobra.Command {
	var id, to string
	cmd := &cobra.Command{
		Use:   "transition",
		Short: "Apply a reviewer decision (APPROVED, DISPUTED, ARCHIVED)",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			doc, err := a.lifecycle().Transition(cmd.Context(), id, domain.DocumentStatus(strings.ToUpper(to)))
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		}),
	}
	cmd.Flags().StringVarP(&id, "document", "d", "", "Document id (required)")
	cmd.Flags().StringVar(&to, "to", "", "Target status (required)")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func archiveCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive a document",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			doc, err := a.lifecycle().Archive(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		}),
	}
	cmd.Flags().StringVarP(&id, "document", "d", "", "Document id (required)")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func confirmPaymentCmd() *cobra.Command {
	var id, ref string
	cmd := &cobra.Command{
		Use:   "confirm-payment",
		Short: "Mark an approved document PAID once the ledger records the payment",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			doc, err := a.lifecycle().ConfirmPayment(cmd.Context(), id, ref)
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		}),
	}
	cmd.Flags().StringVarP(&id, "document", "d", "", "Document id (required)")
	cmd.Flags().StringVar(&ref, "payment-ref", "", "Ledger payment reference (required)")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("payment-ref")
	return cmd
}

func riskReportCmd() *cobra.Command {
	var days int
	var quiet, notify bool
	cmd := &cobra.Command{
		Use:   "risk-report",
		Short: "Rank recent purchase orders at risk",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			progress := func(msg string) { fmt.Fprintln(cmd.ErrOrStderr(), msg) }
			if quiet {
				progress = nil
			}
			report, err := a.risk().Run(cmd.Context(), days, progress)
			if err != nil {
				return err
			}
			if notify {
				n, err := a.notifier(cmd.Context())
				if err != nil {
					return err
				}
				subject := fmt.Sprintf("Purchase order risk report %s", report.AsOf)
				if err := n.Notify(cmd.Context(), subject, report.Summary); err != nil {
					return fmt.Errorf("risk report built but not delivered: %w", err)
				}
			}
			return printJSON(cmd, report)
		}),
	}
	cmd.Flags().IntVar(&days, "days", 7, "Scan window in days")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")
	cmd.Flags().BoolVar(&notify, "notify", false, "Send the summary to the notification topic")
	return cmd
}
