package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vulnwatch/vulnwatch/internal/catalog"
	"github.com/vulnwatch/vulnwatch/internal/nvd"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the CISA Known Exploited Vulnerabilities catalog",
}

var (
	catalogDays    int
	catalogForce   bool
	catalogVendor  string
	catalogProduct string
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogRecentCmd)
	catalogCmd.AddCommand(catalogLookupCmd)
	catalogCmd.AddCommand(catalogSearchCmd)

	catalogCmd.PersistentFlags().BoolVar(&catalogForce, "force-refresh", false, "Bypass the cached feed and refetch")
	catalogRecentCmd.Flags().IntVar(&catalogDays, "days", 7, "Trailing window in days")
	catalogSearchCmd.Flags().StringVar(&catalogVendor, "vendor", "", "Vendor substring filter")
	catalogSearchCmd.Flags().StringVar(&catalogProduct, "product", "", "Product substring filter")
}

var catalogRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List catalog entries added within a trailing window",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := buildServices()
		defer svc.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		snapshot, err := svc.catalog.Fetch(ctx, catalogForce)
		if err != nil {
			return err
		}

		entries := catalog.Recent(snapshot, catalogDays)
		color.Cyan("KEV catalog %s (released %s): %d entries added in the last %d days\n\n",
			snapshot.CatalogVersion, snapshot.DateReleased, len(entries), catalogDays)
		printEntries(entries)
		return nil
	},
}

var catalogLookupCmd = &cobra.Command{
	Use:   "lookup CVE-ID",
	Short: "Show the catalog entry for one CVE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := strings.ToUpper(strings.TrimSpace(args[0]))
		if err := nvd.ValidateCVEID(id); err != nil {
			return err
		}

		svc := buildServices()
		defer svc.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		snapshot, err := svc.catalog.Fetch(ctx, catalogForce)
		if err != nil {
			return err
		}

		matches := catalog.Lookup(snapshot, id)
		if len(matches) == 0 {
			color.Yellow("%s is not in the KEV catalog\n", id)
			return nil
		}
		for _, entry := range matches {
			color.Red("%s  %s %s\n", entry.CVEID, entry.VendorProject, entry.Product)
			fmt.Printf("  %s\n", entry.VulnerabilityName)
			fmt.Printf("  Added: %s  Action due: %s\n", entry.DateAdded, entry.DueDate)
			fmt.Printf("  Required action: %s\n", entry.RequiredAction)
			if entry.KnownRansomwareCampaignUse == "Known" {
				color.Red("  Used in known ransomware campaigns\n")
			}
		}
		return nil
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search catalog entries by vendor or product",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := buildServices()
		defer svc.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		snapshot, err := svc.catalog.Fetch(ctx, catalogForce)
		if err != nil {
			return err
		}

		entries, err := catalog.Search(snapshot, catalog.SearchFilters{
			Vendor:  catalogVendor,
			Product: catalogProduct,
		})
		if err != nil {
			return err
		}

		color.Cyan("%d matching entries\n\n", len(entries))
		printEntries(entries)
		return nil
	},
}

func printEntries(entries []catalog.Entry) {
	for _, entry := range entries {
		fmt.Printf("%-18s %s  %s %s\n", entry.CVEID, entry.DateAdded, entry.VendorProject, entry.Product)
	}
}
