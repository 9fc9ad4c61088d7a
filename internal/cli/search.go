package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ada-labs/swinstall/internal/search"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	searchThreshold int
	searchJSON      bool
	searchPlain     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog by package name",
	Long: `Search for packages whose names resemble the query.

Matching is case-insensitive and tolerant of typos and partial names. Every
package gets a similarity score from 0 to 100; packages scoring at least the
threshold (search_threshold, default 50) are listed best first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchThreshold, "threshold", -1, "Minimum similarity score (0-100); defaults to search_threshold")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	searchCmd.Flags().BoolVar(&searchPlain, "plain", false, "Disable match highlighting")
	rootCmd.AddCommand(searchCmd)
}

// searchEntry represents a ranked package for display.
type searchEntry struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Latest      string `json:"latest"`
	Score       int    `json:"score"`
	Description string `json:"description,omitempty"`
}

var matchStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	e, err := loadEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	index := e.index
	if searchThreshold >= 0 {
		index = search.New(searchThreshold)
	}

	snap, err := e.cache.Get(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	matches, err := index.Rank(snap.Packages(), query)
	if err != nil {
		return err
	}

	entries := make([]searchEntry, len(matches))
	for i, m := range matches {
		entries[i] = searchEntry{
			Name:        m.Package.Name,
			Kind:        m.Package.Kind.String(),
			Latest:      m.Package.LatestLabel(),
			Score:       m.Score,
			Description: m.Package.Description,
		}
	}

	if searchJSON {
		return printJSON(cmd, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No packages found matching %q\n", query)
		return nil
	}
	return printSearchTable(cmd, query, entries, !searchPlain)
}

func printSearchTable(cmd *cobra.Command, query string, entries []searchEntry, highlightMatches bool) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SCORE\tNAME\tKIND\tLATEST\tDESCRIPTION")
	for _, e := range entries {
		name := e.Name
		if highlightMatches {
			name = highlight(query, e.Name)
		}
		desc := truncate(e.Description, 60)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Score, name, e.Kind, e.Latest, desc)
	}
	return w.Flush()
}

// highlight styles the characters of name that match query in order.
func highlight(query, name string) string {
	idx := search.MatchedIndexes(strings.ReplaceAll(query, " ", ""), name)
	if len(idx) == 0 {
		return name
	}
	matched := make(map[int]bool, len(idx))
	for _, i := range idx {
		matched[i] = true
	}

	var b strings.Builder
	for i, r := range name {
		if matched[i] {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
