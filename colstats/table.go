package colstats

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// Header lists the table's column names in output order.
var Header = []string{"name", "n_obs", "mean", "sd", "min", "Q1", "median", "Q3", "max"}

// Row returns the row labelled name.
func (t *Table) Row(name string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return Row{}, false
}

// WriteText writes the table as tab-aligned text, one line per row, each
// value printed with its row's decimal places.
func (t *Table) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for i, h := range Header {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw, "\t")
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%s\t%d", r.Name, r.NObs)
		for _, v := range []float64{r.Mean, r.SD, r.Min, r.Q1, r.Median, r.Q3, r.Max} {
			fmt.Fprintf(tw, "\t%s", strconv.FormatFloat(v, 'f', r.Places, 64))
		}
		fmt.Fprintln(tw, "\t")
	}
	return tw.Flush()
}
