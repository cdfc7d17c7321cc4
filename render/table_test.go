package render

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/way7creation/catalogx"
)

type fixedView struct {
	query  catalogx.QueryState
	result catalogx.ResultState
}

func (v fixedView) Snapshot() (catalogx.QueryState, catalogx.ResultState) {
	return v.query, v.result
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRenderTable(t *testing.T) {
	view := fixedView{
		query: catalogx.QueryState{
			Page:     2,
			PageSize: 20,
			Sort:     catalogx.SortPriceAsc,
			Filters:  map[string]string{"brandFilter": "WAGO"},
		},
		result: catalogx.ResultState{
			Items: []catalogx.Product{
				{ID: 4, ExternalID: "WG-221-412", Name: "Splicing connector", BrandName: "WAGO", BasePrice: 38, Stock: &catalogx.Stock{Quantity: 120}, OrdersCount: 902},
				{ID: 5, ExternalID: "WG-221-413", Name: "Splicing connector 3x", BrandName: "WAGO", Price: &catalogx.Price{Base: 61, Final: 52, HasSpecial: true}, Stock: &catalogx.Stock{Quantity: 0}, OrdersCount: 764},
			},
			TotalCount: 23,
			TotalPages: 2,
		},
	}

	var buf bytes.Buffer
	NewTable(&buf, view, discardLogger()).Render()
	out := buf.String()

	for _, want := range []string{
		"WG-221-412", "Splicing connector", "120",
		"52.00 (was 61.00)", "out",
		"page 2 of 2, 2 of 23 products, sort price_asc, filters brandFilter=WAGO",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSkipsRowsWithoutID(t *testing.T) {
	view := fixedView{
		query: catalogx.DefaultQueryState(),
		result: catalogx.ResultState{
			Items: []catalogx.Product{
				{ID: 0, Name: "broken row"},
				{ID: 9, ExternalID: "SCR-35-16", Name: "Self-tapping screw", BasePrice: 0.45},
			},
			TotalCount: 2,
			TotalPages: 1,
		},
	}

	var buf bytes.Buffer
	NewTable(&buf, view, discardLogger()).Render()
	out := buf.String()

	if strings.Contains(out, "broken row") {
		t.Error("row without product id was rendered")
	}
	if !strings.Contains(out, "Self-tapping screw") {
		t.Errorf("valid row missing:\n%s", out)
	}
	if !strings.Contains(out, "1 of 2 products") {
		t.Errorf("rendered count not reported:\n%s", out)
	}
}

func TestRenderEmptyWithSearchText(t *testing.T) {
	query := catalogx.DefaultQueryState()
	query.Filters["search"] = "bolt"
	view := fixedView{query: query}

	var buf bytes.Buffer
	NewTable(&buf, view, discardLogger()).Render()

	if got := buf.String(); !strings.Contains(got, `no products found for "bolt"`) {
		t.Errorf("empty render = %q", got)
	}
}

func TestRenderEmptyWithoutSearchText(t *testing.T) {
	view := fixedView{query: catalogx.DefaultQueryState()}

	var buf bytes.Buffer
	NewTable(&buf, view, discardLogger()).RenderEmpty()

	if got := buf.String(); !strings.Contains(got, "no products found") {
		t.Errorf("empty render = %q", got)
	}
}
