package app

import (
	"fmt"
	"strings"

	"tradebot/internal/config"
)

type StartupSummary struct {
	Mode     string
	Exchange string
	Symbols  []string
	Strategy string
	Risk     string
	State    string
	Journal  string
	HTTP     string
	Config   string
}

func newStartupSummary(cfg *config.Config, strategyName string) *StartupSummary {
	mode := "DRY RUN (orders simulated)"
	if cfg.Trading.Enabled {
		mode = "LIVE"
	}
	market := "spot"
	if cfg.Exchange.Futures {
		market = "spot+futures"
	}
	if cfg.Exchange.Testnet {
		market += " testnet"
	}
	s := &StartupSummary{
		Mode:     mode,
		Exchange: fmt.Sprintf("%s (%s)", cfg.Exchange.Name, market),
		Symbols:  append([]string(nil), cfg.Trading.Symbols...),
		Strategy: fmt.Sprintf("%s on %s every %s", strategyName, cfg.Trading.Timeframe, cfg.Trading.Interval()),
		Risk:     fmt.Sprintf("max %d open trades, max drawdown %.1f%%", cfg.Risk.MaxOpenTrades, cfg.Risk.MaxDrawdown*100),
		State:    fmt.Sprintf("%s at %s", cfg.State.Backend, cfg.State.Path),
		Journal:  "disabled",
		HTTP:     "disabled",
	}
	if cfg.Journal.Enabled {
		s.Journal = cfg.Journal.Path
	}
	if cfg.HTTP.Enabled {
		s.HTTP = cfg.HTTP.Addr
	}
	if dump, err := cfg.YAML(); err == nil {
		s.Config = dump
	}
	return s
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("STARTUP SUMMARY\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "  mode:     %s\n", s.Mode)
	fmt.Fprintf(&b, "  exchange: %s\n", s.Exchange)
	fmt.Fprintf(&b, "  symbols:  %s\n", formatList(s.Symbols))
	fmt.Fprintf(&b, "  strategy: %s\n", s.Strategy)
	fmt.Fprintf(&b, "  risk:     %s\n", s.Risk)
	fmt.Fprintf(&b, "  state:    %s\n", s.State)
	fmt.Fprintf(&b, "  journal:  %s\n", s.Journal)
	fmt.Fprintf(&b, "  http:     %s\n", s.HTTP)
	if s.Config != "" {
		b.WriteString("[effective config]\n")
		for _, line := range strings.Split(s.Config, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString(strings.Repeat("=", 60))
	return b.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
