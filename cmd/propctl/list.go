package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/PropertyListing/internal/app"
	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/gateway"
	"github.com/PropertyListing/internal/viewport"
	"github.com/PropertyListing/pkg/format"
	"github.com/spf13/cobra"
)

type listOptions struct {
	name     string
	address  string
	minPrice string
	maxPrice string
	sort     string
	pages    int
	pageSize int
	asJSON   bool
}

var listOpts listOptions

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List properties, accumulating pages",
	Long: `Loads pages in order until --pages pages are loaded or the API reports no next page.

Examples:
  propctl list --name villa --sort price:desc
  propctl list --min-price 250K --max-price 1.5M --pages 3`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func registerListFlags(cmd *cobra.Command, defaultPageSize int) {
	f := cmd.Flags()
	f.StringVar(&listOpts.name, "name", "", "name contains (case-insensitive)")
	f.StringVar(&listOpts.address, "address", "", "address contains (case-insensitive)")
	f.StringVar(&listOpts.minPrice, "min-price", "", "minimum price, e.g. 250000, 250K or $1.5M")
	f.StringVar(&listOpts.maxPrice, "max-price", "", "maximum price")
	f.StringVar(&listOpts.sort, "sort", "", "sort as key:dir, e.g. price:asc or name:desc")
	f.IntVar(&listOpts.pages, "pages", 1, "number of pages to load")
	f.IntVar(&listOpts.pageSize, "page-size", defaultPageSize, "items per page")
	f.BoolVar(&listOpts.asJSON, "json", false, "print the accumulated snapshot as JSON")
}

// buildQuery turns the list flags into a query.
func (o listOptions) buildQuery() (domain.Query, error) {
	var q domain.Query
	if o.name != "" {
		q.Filters.Name = &o.name
	}
	if o.address != "" {
		q.Filters.Address = &o.address
	}
	for _, bound := range []struct {
		raw string
		dst **float64
	}{{o.minPrice, &q.Filters.MinPrice}, {o.maxPrice, &q.Filters.MaxPrice}} {
		if bound.raw == "" {
			continue
		}
		v, err := format.ParsePrice(bound.raw)
		if err != nil {
			return domain.Query{}, fmt.Errorf("%w: invalid price %q", domain.ErrInvalidQuery, bound.raw)
		}
		*bound.dst = &v
	}
	if o.sort != "" {
		by, dir, _ := strings.Cut(o.sort, ":")
		if dir == "" {
			dir = string(domain.SortDirAsc)
		}
		q.Sort = domain.Sort{By: domain.SortBy(by), Dir: domain.SortDir(dir)}
	}
	if o.pages < 1 {
		return domain.Query{}, fmt.Errorf("%w: --pages must be >= 1", domain.ErrInvalidQuery)
	}
	return q, q.WithPage(1, o.pageSize).Validate()
}

func runList(cmd *cobra.Command, args []string) error {
	q, err := listOpts.buildQuery()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	acc := app.NewAccumulator(gateway.NewClient(apiURL), q, listOpts.pageSize)
	defer acc.Close()

	snap, err := accumulate(ctx, acc, listOpts.pages)
	if err != nil {
		return err
	}

	if listOpts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return printTable(cmd.OutOrStdout(), snap)
}

// accumulate treats the output as a terminal window maxPages pages tall with an end-of-list
// marker after the last row. A sentinel keeps loading while the marker is inside the window.
func accumulate(ctx context.Context, acc *app.Accumulator, maxPages int) (app.Snapshot, error) {
	rows := maxPages * acc.PageSize()
	window := viewport.Rect{Top: 0, Bottom: float64(rows - 1)}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan struct{}, 1)
	settled := make(chan app.Snapshot, 1)
	unsubscribe := acc.Subscribe(func(s app.Snapshot) {
		if s.Loading {
			return
		}
		if s.Err != nil || !s.HasNextPage || len(s.Properties) >= rows {
			select {
			case settled <- s:
			default:
			}
			return
		}
		select {
		case signals <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	measure := func() (*viewport.Rect, viewport.Rect) {
		return &viewport.Rect{Top: float64(len(acc.Flattened()))}, window
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		viewport.NewSentinel(acc, 0).Run(ctx, measure, signals, 0)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	select {
	case snap := <-settled:
		return snap, snap.Err
	case <-ctx.Done():
		return app.Snapshot{}, ctx.Err()
	}
}

func printTable(out io.Writer, snap app.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS\tPRICE\tYEAR\tIMAGES")
	for _, p := range snap.Properties {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			p.ID, p.Name, p.Address, format.Compact(p.Price), p.Year, len(p.EnabledImages()))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	more := ""
	if snap.HasNextPage {
		more = ", more available"
	}
	_, err := fmt.Fprintf(out, "\nShowing %s of %s properties (%d pages%s)\n",
		format.Number(float64(len(snap.Properties))), format.Number(float64(snap.Total)), snap.Pages, more)
	return err
}
