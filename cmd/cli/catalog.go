package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/groceryfinder/price-monitor/internal/catalog"
)

var (
	storesOutput string
	itemsQuery   string
	itemsOutput  string
)

// storesCmd represents the stores command
var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List the stores in the catalog",
	Example: `  price-monitor stores
  price-monitor stores --output json`,
	RunE: runStores,
}

// itemsCmd represents the items command
var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List or search the items in the catalog",
	Long: `List the grocery items in the catalog. With --query, only items whose
name, brand, or category contains the query (case-insensitive) are shown.`,
	Example: `  price-monitor items
  price-monitor items --query milk
  price-monitor items --output json`,
	RunE: runItems,
}

func init() {
	rootCmd.AddCommand(storesCmd)
	rootCmd.AddCommand(itemsCmd)

	storesCmd.Flags().StringVar(&storesOutput, "output", "table", "Output format: table or json")
	itemsCmd.Flags().StringVar(&itemsQuery, "query", "", "Filter items by name, brand, or category")
	itemsCmd.Flags().StringVar(&itemsOutput, "output", "table", "Output format: table or json")
}

func runStores(cmd *cobra.Command, args []string) error {
	stores := catalog.Stores()

	if storesOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stores)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCHAIN\tADDRESS\tCITY")
	for _, s := range stores {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s, %s %s\n", s.ID, s.Name, s.Chain, s.Address, s.City, s.State, s.ZipCode)
	}
	return w.Flush()
}

func runItems(cmd *cobra.Command, args []string) error {
	items := catalog.SearchItems(itemsQuery)

	if itemsOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBRAND\tCATEGORY\tSIZE")
	for _, i := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", i.ID, i.Name, i.Brand, i.Category, i.Size)
	}
	return w.Flush()
}
