// Command reconcile-report prints one month's inscriptions, payments and
// reconciliation status. It exits non-zero when the records cannot be read.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"arwaeduc/internal/cli"
	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/report"
)

func main() {
	now := time.Now()
	year := flag.Int("year", now.Year(), "report year")
	month := flag.Int("month", int(now.Month()), "report month (1-12)")
	timeout := flag.Duration("timeout", 30*time.Second, "time allowed for fetching records")
	flag.Parse()

	if *month < 1 || *month > 12 {
		fmt.Fprintf(os.Stderr, "invalid month %d\n", *month)
		os.Exit(2)
	}

	cfg, logger := cli.LoadAndValidateConfig(log.ComponentReport)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := cli.OpenBackend(ctx, cfg, logger)
	defer store.Close()
	analytics, err := cli.BuildAnalytics(ctx, cfg, store.Store, logger)
	if err != nil {
		logger.Error("Failed to initialize analytics", log.FieldError, err)
		os.Exit(1)
	}
	defer analytics.Close()

	p := core.MonthPeriod(*year, *month, analytics.Service.Location())
	ov, err := analytics.Service.MonthOverview(ctx, p)
	if err != nil {
		logger.Error("Failed to fetch records", log.FieldError, err, log.FieldPeriod, p.Label())
		os.Exit(1)
	}

	printOverview(os.Stdout, cfg.SchoolName, ov, report.NewFormatter(cfg.ReportLocale, cfg.CurrencyLabel))
}

func printOverview(w io.Writer, school string, ov core.MonthOverview, f report.Formatter) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", school, ov.Period.Label())
	fmt.Fprintln(tw, "\t")

	fmt.Fprintf(tw, "Inscriptions\t%d\t%s\n", ov.Inscriptions.Count, f.Money(ov.Inscriptions.Total))
	for _, t := range []core.InscriptionType{core.InscriptionSoutien, core.InscriptionFormation} {
		b := ov.Inscriptions.Bucket(string(t))
		fmt.Fprintf(tw, "  %s\t%d\t%s\n", t, b.Count, f.Money(b.Total))
	}
	fmt.Fprintf(tw, "Payments\t%d\t%s\n", ov.Payments.Count, f.Money(ov.Payments.Total))
	fmt.Fprintf(tw, "Income\t\t%s\n", f.Money(ov.CashFlow.Income))
	fmt.Fprintf(tw, "Expense\t\t%s\n", f.Money(ov.CashFlow.Expense))
	fmt.Fprintln(tw, "\t")

	rec := ov.Reconciliation
	fmt.Fprintf(tw, "Reconciliation\t%s\t%s\n", rec.Status, f.Money(rec.Difference))
	_ = tw.Flush()
}
