package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"quiver/internal/backtest"
)

// Render writes a full text report for a completed run to w.
func Render(w io.Writer, result *backtest.Result) error {
	fmt.Fprintf(w, "Run %s\n\n", result.RunID)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PERFORMANCE")
	fmt.Fprintf(tw, "  Total return\t%s\n", FormatPct(result.Performance.TotalReturn))
	fmt.Fprintf(tw, "  Annualized return\t%s\n", FormatPct(result.Performance.AnnualizedReturn))
	fmt.Fprintf(tw, "  Sharpe ratio\t%s\n", FormatRatio(result.Performance.SharpeRatio))
	fmt.Fprintf(tw, "  Max drawdown\t%.2f%%\n", result.Performance.MaxDrawdown)
	fmt.Fprintf(tw, "  Volatility\t%.2f%%\n", result.Performance.Volatility)
	fmt.Fprintf(tw, "  Win rate\t%.1f%%\n", result.Performance.WinRate)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "TRADES")
	fmt.Fprintf(tw, "  Total trades\t%s\n", FormatInt(result.Summary.TotalTrades))
	fmt.Fprintf(tw, "  Avg trade return\t%s\n", FormatPct(result.TradeStats.AvgTradeReturn))
	fmt.Fprintf(tw, "  Avg trade duration\t%s\n", FormatHours(result.TradeStats.AvgTradeDuration))
	fmt.Fprintf(tw, "  Profit factor\t%s\n", FormatRatio(result.TradeStats.ProfitFactor))
	fmt.Fprintf(tw, "  Avg commission\t%s\n", FormatMoney(result.TradeStats.AvgCommission))
	fmt.Fprintf(tw, "  Total commission\t%s\n", FormatMoney(result.Summary.TotalCommission))
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "LEDGER")
	fmt.Fprintf(tw, "  Realized P&L\t%s\n", FormatMoney(result.Summary.RealizedPnL))
	fmt.Fprintf(tw, "  Ending cash\t%s\n", FormatMoney(result.Summary.EndingCash))
	fmt.Fprintf(tw, "  Return on capital\t%s\n", FormatPct(result.Summary.ReturnPct))

	return tw.Flush()
}

// RenderTrades writes the per-fill ledger to w, one row per trade.
func RenderTrades(w io.Writer, result *backtest.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tSYMBOL\tQTY\tPRICE\tCOMMISSION\tCASH")
	for _, t := range result.Trades {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.4f\t%.4f\t%.2f\n",
			t.Timestamp.Format("2006-01-02 15:04"),
			t.Symbol, t.Quantity, t.Price, t.Commission, t.Cash)
	}
	return tw.Flush()
}
