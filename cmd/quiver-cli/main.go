package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"quiver/pkg/quiver"
)

const version = "0.1.0"

func main() {
	serverURL := flag.String("server", envOr("QUIVER_SERVER", "http://localhost:8080"), "quiver-server base URL")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quiver-cli [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version           Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  strategies        List registered strategies\n")
		fmt.Fprintf(os.Stderr, "  runs              List recent backtest runs\n")
		fmt.Fprintf(os.Stderr, "  show <run-id>     Show metrics for one run\n")
		fmt.Fprintf(os.Stderr, "  orders            List recent journaled orders\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := quiver.NewClient(*serverURL)

	switch args[0] {
	case "version":
		fmt.Printf("quiver-cli %s\n", version)

	case "strategies":
		strategies, err := client.ListStrategies(ctx)
		if err != nil {
			fatal(err)
		}
		for _, s := range strategies {
			fmt.Println(s)
		}

	case "runs":
		runs, err := client.ListRuns(ctx, 20)
		if err != nil {
			fatal(err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTRATEGY\tWINDOW\tCAPITAL\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%.0f\t%s\n",
				r.ID, r.Strategy, r.StartDate, r.EndDate, r.InitialCapital, r.CreatedAt)
		}
		tw.Flush()

	case "show":
		if len(args) < 2 {
			fatal(fmt.Errorf("show requires a run ID"))
		}
		detail, err := client.GetRun(ctx, args[1])
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Run %s (%s, %s..%s)\n", detail.Run.ID, detail.Run.Strategy,
			detail.Run.StartDate, detail.Run.EndDate)
		fmt.Printf("  Total return      %+.2f%%\n", detail.Performance.TotalReturn)
		fmt.Printf("  Annualized return %+.2f%%\n", detail.Performance.AnnualizedReturn)
		fmt.Printf("  Sharpe ratio      %.2f\n", detail.Performance.SharpeRatio)
		fmt.Printf("  Max drawdown      %.2f%%\n", detail.Performance.MaxDrawdown)
		fmt.Printf("  Win rate          %.1f%%\n", detail.Performance.WinRate)
		fmt.Printf("  Trades            %d\n", detail.Summary.TotalTrades)
		fmt.Printf("  Ending cash       %.2f\n", detail.Summary.EndingCash)

	case "orders":
		orders, err := client.ListOrders(ctx, 20)
		if err != nil {
			fatal(err)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSYMBOL\tSIDE\tQTY\tFILLED\tSTATUS\tUPDATED")
		for _, o := range orders {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%.2f\t%s\t%s\n",
				o.ID, o.Symbol, o.Side, o.Qty, o.FilledAvgPrice, o.Status, o.UpdatedAt)
		}
		tw.Flush()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "quiver-cli: %v\n", err)
	os.Exit(1)
}
