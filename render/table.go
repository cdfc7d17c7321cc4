// Package render draws catalog results as a text table. It implements
// catalogx.Renderer over a catalogx.View so repeated renders always
// reflect the latest snapshot.
package render

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/way7creation/catalogx"
)

// Table writes the current result page to an io.Writer.
type Table struct {
	out  io.Writer
	view catalogx.View
	log  *slog.Logger
}

// NewTable creates a table renderer over the given view.
func NewTable(out io.Writer, view catalogx.View, log *slog.Logger) *Table {
	if log == nil {
		log = slog.Default()
	}
	return &Table{out: out, view: view, log: log}
}

// Render draws the result table. Rows that cannot be drawn are skipped
// and logged so one bad product never blanks the whole page.
func (t *Table) Render() {
	query, result := t.view.Snapshot()
	if len(result.Items) == 0 {
		t.RenderEmpty()
		return
	}

	w := tabwriter.NewWriter(t.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tBRAND\tPRICE\tSTOCK\tORDERS")
	rendered := 0
	for _, p := range result.Items {
		if p.ID <= 0 {
			t.log.Warn("skipping row without product id", "name", p.Name)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			p.ID, p.ExternalID, p.Name, p.BrandName,
			priceCell(p), stockCell(p), p.OrdersCount)
		rendered++
	}
	w.Flush()

	fmt.Fprintf(t.out, "\npage %d of %d, %d of %d products, sort %s%s\n",
		query.Page, result.TotalPages, rendered, result.TotalCount,
		query.Sort, filterSuffix(query))
}

// RenderEmpty clears the table area and prints the empty-state line.
func (t *Table) RenderEmpty() {
	query, _ := t.view.Snapshot()
	if text := query.SearchText(); text != "" {
		fmt.Fprintf(t.out, "no products found for %q\n", text)
		return
	}
	fmt.Fprintln(t.out, "no products found")
}

func priceCell(p catalogx.Product) string {
	if p.Price != nil && p.Price.HasSpecial {
		return fmt.Sprintf("%.2f (was %.2f)", p.Price.Final, p.Price.Base)
	}
	if p.Price != nil && p.Price.Final > 0 {
		return fmt.Sprintf("%.2f", p.Price.Final)
	}
	if p.BasePrice > 0 {
		return fmt.Sprintf("%.2f", p.BasePrice)
	}
	return "-"
}

func stockCell(p catalogx.Product) string {
	if p.Stock == nil {
		return "?"
	}
	if p.Stock.Quantity <= 0 {
		if p.Delivery != nil && p.Delivery.Text != "" {
			return p.Delivery.Text
		}
		return "out"
	}
	return strconv.Itoa(p.Stock.Quantity)
}

func filterSuffix(query catalogx.QueryState) string {
	var parts []string
	for name, value := range query.Filters {
		if name == "search" {
			continue
		}
		parts = append(parts, name+"="+value)
	}
	if len(parts) == 0 {
		return ""
	}
	sort.Strings(parts)
	return ", filters " + strings.Join(parts, " ")
}
