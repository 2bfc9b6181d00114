package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"tradebot/internal/app"
	"tradebot/internal/config"
	"tradebot/internal/pkg/symbol"
	"tradebot/internal/position"
	"tradebot/internal/store"
	"tradebot/internal/store/model"
	"tradebot/internal/store/sqlite"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPositionsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Print the active positions from the state store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			snap, err := loadSnapshot(cmd.Context(), cfg.State)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap.Positions)
			}
			return renderActive(cmd.OutOrStdout(), snap.Positions, time.Now())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newClosedCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON  bool
		archive bool
		limit   int
		sym     string
	)
	cmd := &cobra.Command{
		Use:   "closed",
		Short: "Print closed positions (tracker history or the journal archive)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			sym = symbol.Canonical(strings.ToUpper(strings.TrimSpace(sym)))
			if archive {
				return printArchive(cmd.Context(), out, cfg.Journal, sym, limit, asJSON)
			}
			snap, err := loadSnapshot(cmd.Context(), cfg.State)
			if err != nil {
				return err
			}
			closed := newestFirst(snap.Closed, sym, limit)
			if asJSON {
				return writeJSON(out, closed)
			}
			return renderClosed(out, closed)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&archive, "archive", false, "read the unbounded journal archive instead of the tracker history")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows")
	cmd.Flags().StringVarP(&sym, "symbol", "s", "", "only this symbol")
	return cmd
}

func loadSnapshot(ctx context.Context, cfg config.StateConfig) (position.Snapshot, error) {
	st, err := app.OpenStateStore(cfg)
	if err != nil {
		return position.Snapshot{}, fmt.Errorf("open state: %w", err)
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}
	snap, err := st.Load(ctx)
	if err != nil {
		return position.Snapshot{}, fmt.Errorf("load state: %w", err)
	}
	return snap, nil
}

func printArchive(ctx context.Context, out io.Writer, cfg config.JournalConfig, sym string, limit int, asJSON bool) error {
	if !cfg.Enabled {
		return fmt.Errorf("journal is disabled in the config")
	}
	db, err := sqlite.NewSqliteStore(cfg.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	j, err := store.NewJournal(db)
	if err != nil {
		db.Close()
		return err
	}
	defer j.Close()

	rows, err := j.RecentClosed(ctx, sym, limit)
	if err != nil {
		return err
	}
	pnl, err := j.RealizedPnL(ctx, sym)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, map[string]any{"closed": rows, "realized_pnl": pnl})
	}
	return renderArchive(out, rows, pnl)
}

func newestFirst(closed []position.Position, sym string, limit int) []position.Position {
	out := make([]position.Position, 0, len(closed))
	for i := len(closed) - 1; i >= 0; i-- {
		if sym != "" && closed[i].Symbol != sym {
			continue
		}
		out = append(out, closed[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func renderActive(out io.Writer, positions []position.Position, now time.Time) error {
	if len(positions) == 0 {
		_, err := fmt.Fprintln(out, "no active positions")
		return err
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSIDE\tAMOUNT\tENTRY\tCURRENT\tVALUE\tPROFIT\tDRAWDOWN\tHELD")
	for i := range positions {
		p := &positions[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Symbol, p.Side, num(p.Amount, 6), num(p.EntryPrice, 4), num(p.CurrentPrice, 4),
			num(p.Value(), 2), percent(p.ProfitPct()), percent(p.DrawdownPct()),
			p.Duration(now).Truncate(time.Minute))
	}
	return tw.Flush()
}

func renderClosed(out io.Writer, closed []position.Position) error {
	if len(closed) == 0 {
		_, err := fmt.Fprintln(out, "no closed positions")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSIDE\tAMOUNT\tENTRY\tEXIT\tPROFIT\tMAX DRAWDOWN\tOPENED")
	for i := range closed {
		p := &closed[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Symbol, p.Side, num(p.Amount, 6), num(p.EntryPrice, 4), num(p.CurrentPrice, 4),
			percent(p.ProfitPct()), percent(p.DrawdownPct()), p.EntryTime.Format(time.RFC3339))
	}
	return tw.Flush()
}

func renderArchive(out io.Writer, rows []model.ClosedPositionModel, pnl float64) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSIDE\tAMOUNT\tENTRY\tEXIT\tPNL\tPROFIT\tREASON\tCLOSED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Symbol, r.Side, num(r.Amount, 6), num(r.EntryPrice, 4), num(r.ExitPrice, 4),
			num(r.PnL, 2), percent(r.ProfitPct), r.Reason,
			time.Unix(r.ClosedAtUnix, 0).UTC().Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "realized pnl: %s\n", num(pnl, 2))
	return err
}

func num(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}

func percent(frac float64) string {
	return decimal.NewFromFloat(frac*100).Round(2).String() + "%"
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
