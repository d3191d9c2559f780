package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rshade/gridcore/datasource"
	"github.com/rshade/gridcore/grid"
	"github.com/rshade/gridcore/internal/config"
	"github.com/rshade/gridcore/internal/demo"
	"github.com/rshade/gridcore/internal/tui"
	"github.com/rshade/gridcore/sortorder"
	"github.com/rshade/gridcore/windowcache"
)

// browseFlags holds the browse command's flag values.
type browseFlags struct {
	rows             int
	pageSize         int
	buffer           int
	sort             []string
	selectionMode    string
	multiSort        bool
	exclusiveDetails bool
	url              string
	plain            bool
}

// NewBrowseCmd creates the browse command: an interactive grid over the demo
// dataset or a remote paged endpoint. When stdout is not a terminal (or
// --plain is set) the first page is dumped as a plain table instead.
func NewBrowseCmd() *cobra.Command {
	var flags browseFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a dataset through the grid engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			applyFlagOverrides(cmd, cfg, &flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			if flags.plain || !isTerminal(os.Stdout) {
				return renderPlain(cmd.Context(), cmd.OutOrStdout(), eng, cfg.Grid.PageSize)
			}

			logger.Info().
				Int("rows", cfg.Demo.Rows).
				Str("url", cfg.Demo.URL).
				Str("selection_mode", cfg.Grid.SelectionMode).
				Msg("starting interactive browse")

			p := tea.NewProgram(tui.NewBrowseModel(eng, logger), tea.WithAltScreen())
			if _, runErr := p.Run(); runErr != nil {
				return fmt.Errorf("failed to run interactive browse: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.rows, "rows", 0, "generated dataset size (ignored with --url)")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 0, "maximum rows per fetch")
	cmd.Flags().IntVar(&flags.buffer, "buffer", -1, "rows kept loaded beyond the viewport")
	cmd.Flags().StringSliceVar(&flags.sort, "sort", nil, `initial sort expressions ("name", "version:desc")`)
	cmd.Flags().StringVar(&flags.selectionMode, "selection-mode", "", "selection mode: none, single, multi")
	cmd.Flags().BoolVar(&flags.multiSort, "multi-sort", false, "allow secondary sort criteria")
	cmd.Flags().BoolVar(&flags.exclusiveDetails, "exclusive-details", false, "keep at most one detail panel open")
	cmd.Flags().StringVar(&flags.url, "url", "", "remote paged endpoint serving the release envelope")
	cmd.Flags().BoolVar(&flags.plain, "plain", false, "dump the first page instead of starting the TUI")

	return cmd
}

// applyFlagOverrides copies explicitly set flags onto the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, flags *browseFlags) {
	if cmd.Flags().Changed("rows") {
		cfg.Demo.Rows = flags.rows
	}
	if cmd.Flags().Changed("page-size") {
		cfg.Grid.PageSize = flags.pageSize
	}
	if cmd.Flags().Changed("buffer") {
		cfg.Grid.Buffer = flags.buffer
	}
	if cmd.Flags().Changed("sort") {
		cfg.Demo.Sort = flags.sort
	}
	if cmd.Flags().Changed("selection-mode") {
		cfg.Grid.SelectionMode = flags.selectionMode
	}
	if cmd.Flags().Changed("multi-sort") {
		cfg.Grid.MultiSort = flags.multiSort
	}
	if cmd.Flags().Changed("exclusive-details") {
		cfg.Grid.ExclusiveDetails = flags.exclusiveDetails
	}
	if cmd.Flags().Changed("url") {
		cfg.Demo.URL = flags.url
	}
}

// buildEngine assembles the grid engine from the effective configuration.
func buildEngine(cfg *config.Config) (*grid.Engine[demo.Release], error) {
	source, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}

	opts := []grid.Option{
		grid.WithLogger(config.GetLogger()),
		grid.WithPageSize(cfg.Grid.PageSize),
		grid.WithBuffer(cfg.Grid.Buffer),
		grid.WithProbeIncrement(cfg.Grid.ProbeIncrement),
		grid.WithSelectionMode(cfg.SelectionMode()),
		grid.WithSelectOnClick(),
		grid.WithoutDetailsOnClick(),
	}
	if cfg.Grid.DeselectAllowed {
		opts = append(opts, grid.WithDeselectAllowed())
	}
	if cfg.Grid.MultiSort {
		opts = append(opts, grid.WithMultiSort())
	}
	if cfg.Grid.ExclusiveDetails {
		opts = append(opts, grid.WithExclusiveDetails())
	}

	eng := grid.New(source, demo.Identity, opts...).SetColumns(demo.Columns()...)

	criteria, err := parseSortCriteria(cfg.Demo.Sort)
	if err != nil {
		return nil, err
	}
	if len(criteria) > 0 {
		eng.SetSortCriteria(criteria)
	}
	return eng, nil
}

// buildSource picks the HTTP source when a URL is configured, the generated
// in-memory dataset otherwise.
func buildSource(cfg *config.Config) (datasource.Source[demo.Release], error) {
	if cfg.Demo.URL != "" {
		return datasource.NewHTTPSource[demo.Release](cfg.Demo.URL,
			datasource.WithHTTPLogger(config.GetLogger()))
	}
	return demo.NewSource(cfg.Demo.Rows), nil
}

// parseSortCriteria turns sort expressions into engine criteria bound to the
// demo columns' comparators.
func parseSortCriteria(exprs []string) ([]sortorder.Criterion[demo.Release], error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	columns := make(map[string]grid.Column[demo.Release], len(demo.Columns()))
	for _, col := range demo.Columns() {
		columns[col.Key] = col
	}

	criteria := make([]sortorder.Criterion[demo.Release], 0, len(exprs))
	for _, expr := range exprs {
		field, dir, err := sortorder.ParseExpression(expr)
		if err != nil {
			return nil, err
		}
		col, ok := columns[field]
		if !ok {
			return nil, fmt.Errorf("unknown sort column %q (have: %s)", field, strings.Join(demo.ColumnKeys(), ", "))
		}
		criteria = append(criteria, sortorder.Criterion[demo.Release]{
			Key:       col.Key,
			Direction: dir,
			Compare:   col.Compare,
		})
	}
	return criteria, nil
}

// renderPlain dumps the first page as a tab-aligned table for pipes and
// non-terminal output.
func renderPlain(ctx context.Context, w io.Writer, eng *grid.Engine[demo.Release], pageSize int) error {
	if err := eng.SetVisibleRange(0, pageSize); err != nil {
		return err
	}
	if _, err := eng.EnsureCoverage(ctx); err != nil {
		return err
	}
	eng.Wait()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	titles := make([]string, 0, len(eng.Columns())+1)
	titles = append(titles, "#")
	for _, col := range eng.Columns() {
		titles = append(titles, col.Title)
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))

	count, exact := eng.Count()
	end := pageSize
	if end > count {
		end = count
	}
	for _, row := range eng.Rows(0, end) {
		if row.State != windowcache.RowLoaded {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\n", row.Index, strings.Join(row.Cells, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	suffix := ""
	if !exact {
		suffix = " (estimated)"
	}
	fmt.Fprintf(w, "\n%d rows%s\n", count, suffix)
	return nil
}
