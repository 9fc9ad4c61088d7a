package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/ada-labs/swinstall/internal/branding"
	"github.com/ada-labs/swinstall/internal/catalog"
	"github.com/ada-labs/swinstall/internal/dispatch"
	"github.com/ada-labs/swinstall/internal/versions"
	"github.com/spf13/cobra"
)

var (
	catalogJSON bool
	kindFilter  string
)

func init() {
	catalogListCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output in JSON format")
	catalogListCmd.Flags().StringVar(&kindFilter, "kind", "", "Filter by kind (container, native)")
	catalogVersionsCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output in JSON format")
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogVersionsCmd)
	catalogCmd.AddCommand(catalogStatusCmd)
	catalogCmd.AddCommand(catalogRefreshCmd)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the software catalog",
	Long: `Browse the catalog of installable software.

The catalog is read from catalog_url, either by walking its directory
listings (catalog_mode=scrape) or from a JSON/YAML manifest
(catalog_mode=manifest). When the upstream cannot be reached the last
successfully fetched catalog is used from ` + "~/" + branding.HomeDir() + `.`,
}

// catalogEntry represents a catalog package for display.
type catalogEntry struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Latest      string   `json:"latest"`
	Installed   string   `json:"installed,omitempty"`
	Description string   `json:"description,omitempty"`
	Versions    []string `json:"versions"`
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog packages with their latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		var kind *catalog.Kind
		if kindFilter != "" {
			k, err := catalog.ParseKind(kindFilter)
			if err != nil {
				return err
			}
			kind = &k
		}

		e, err := loadEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		snap, err := e.cache.Get(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}

		var entries []catalogEntry
		for _, p := range snap.Packages() {
			if kind != nil && p.Kind != *kind {
				continue
			}
			entries = append(entries, toCatalogEntry(p, e.settings.DownloadDir))
		}

		if catalogJSON {
			return printJSON(cmd, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No packages found.")
			return nil
		}
		return printCatalogTable(cmd, entries)
	},
}

func toCatalogEntry(p catalog.Package, downloadDir string) catalogEntry {
	entry := catalogEntry{
		Name:        p.Name,
		Kind:        p.Kind.String(),
		Latest:      p.LatestLabel(),
		Description: p.Description,
		Versions:    p.Versions(),
	}
	if p.Kind == catalog.KindContainerImage {
		if v, err := dispatch.InstalledVersion(downloadDir, p.Name); err == nil {
			entry.Installed = v
		}
	}
	return entry
}

func printCatalogTable(cmd *cobra.Command, entries []catalogEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tLATEST\tINSTALLED\tDESCRIPTION")
	for _, e := range entries {
		installed := e.Installed
		if installed == "" {
			installed = "-"
		}
		desc := truncate(e.Description, 60)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Kind, e.Latest, installed, desc)
	}
	return w.Flush()
}

var catalogVersionsCmd = &cobra.Command{
	Use:   "versions <package>",
	Short: "List the published versions of a package, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		snap, err := e.cache.Get(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		p, ok := snap.Lookup(args[0])
		if !ok {
			return fmt.Errorf("package %q not found in catalog", args[0])
		}

		ordered := versions.SortDescending(p.Versions())
		if catalogJSON {
			return printJSON(cmd, ordered)
		}
		if len(ordered) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Name, versions.Unavailable)
			return nil
		}
		latest := p.LatestLabel()
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s ordering)\n", p.Name, versions.OrderingOf(ordered))
		for _, v := range ordered {
			marker := " "
			if v == latest {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", marker, v)
		}
		return nil
	},
}

var catalogStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog source, origin and freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Source:       %s (%s)\n", e.settings.CatalogURL, e.settings.CatalogMode)
		fmt.Fprintf(out, "Backup:       %s\n", e.settings.BackupPath)

		snap, err := e.cache.Get(cmd.Context())
		if err != nil {
			fmt.Fprintf(out, "Status:       %s\n", versions.Unavailable)
			return fmt.Errorf("loading catalog: %w", err)
		}
		fmt.Fprintf(out, "Origin:       %s\n", snap.Origin())
		fmt.Fprintf(out, "Fetched:      %s (%s ago)\n", snap.FetchedAt().Format(time.RFC3339), time.Since(snap.FetchedAt()).Round(time.Second))
		fmt.Fprintf(out, "Packages:     %d\n", snap.Len())
		return nil
	},
}

var catalogRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the catalog now and update the on-disk backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}
		defer e.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Fetching catalog from %s...\n", e.settings.CatalogURL)
		snap, err := e.cache.Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("refreshing catalog: %w", err)
		}
		if snap.Origin() == catalog.OriginBackup {
			fmt.Fprintln(cmd.OutOrStdout(), "Upstream unavailable; using the on-disk backup.")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog has %d packages.\n", snap.Len())
		return nil
	},
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
