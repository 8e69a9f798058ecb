package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/PropertyListing/internal/app"
	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/gateway"
	"github.com/PropertyListing/pkg/format"
	"github.com/spf13/cobra"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a property with its owner and sale history",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "print the property as JSON")
}

func runGet(cmd *cobra.Command, args []string) error {
	details := app.NewDetailService(gateway.NewClient(apiURL), nil)
	detail, err := details.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if getJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}
	return printDetail(cmd.OutOrStdout(), detail)
}

func printDetail(out io.Writer, d *domain.PropertyDetail) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", d.ID)
	fmt.Fprintf(w, "Name\t%s\n", d.Name)
	fmt.Fprintf(w, "Address\t%s\n", d.Address)
	fmt.Fprintf(w, "Price\t%s\n", format.Currency(d.Price))
	fmt.Fprintf(w, "Code\t%s\n", d.CodeInternal)
	fmt.Fprintf(w, "Year\t%d\n", d.Year)
	if cover, ok := d.CoverImage(); ok {
		fmt.Fprintf(w, "Cover\t%s\n", cover.URL)
	}
	if d.Owner != nil {
		owner := d.Owner.Name
		if owner == "" {
			owner = d.Owner.ID
		}
		fmt.Fprintf(w, "Owner\t%s\n", owner)
	}
	if last, ok := d.LastSale(); ok {
		fmt.Fprintf(w, "Last sale\t%s on %s\n", format.CurrencyDetailed(last.Value, true), last.DateSale.Format("2006-01-02"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(d.Traces) == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nSales")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tNAME\tVALUE\tTAX")
	for _, t := range d.Traces {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			t.DateSale.Format("2006-01-02"), t.Name, format.CurrencyDetailed(t.Value, true), format.CurrencyDetailed(t.Tax, true))
	}
	return w.Flush()
}
