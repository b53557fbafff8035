package detail

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes the view as plain text tables.
func (v *View) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Return (%%) over %s\n", v.Period)
	fmt.Fprint(tw, "Ticker\tFrom\tTo\tReturn\n")
	for _, rs := range v.Returns {
		if len(rs.Points) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\n", rs.Symbol)
			continue
		}
		first, last := rs.Points[0], rs.Points[len(rs.Points)-1]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.2f%%\n", rs.Symbol,
			first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), last.Pct)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Key Metrics")
	fmt.Fprintf(tw, "\t%s\n", strings.Join(v.Metrics.Tickers, "\t"))
	for i, name := range v.Metrics.Metrics {
		fmt.Fprintf(tw, "%s\t%s\n", name, strings.Join(v.Metrics.Values[i], "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nRecent News")
	for _, n := range v.News {
		fmt.Fprintf(w, "%s News\n", n.Symbol)
		for _, line := range n.Lines() {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}
