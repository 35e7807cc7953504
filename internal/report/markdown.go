package report

import (
	"fmt"
	"strings"

	"solana-perp-history/internal/domain"
)

// RenderMarkdown renders a trade report as a Markdown summary.
func RenderMarkdown(r *domain.TradeReport) string {
	var sb strings.Builder

	sb.WriteString("# Trade History\n\n")
	sb.WriteString(fmt.Sprintf("Wallet: `%s`\n\n", r.WalletAddress))
	sb.WriteString(fmt.Sprintf("Generated: %s | Positions: %d\n\n", r.SyncTimestamp, len(r.Positions)))

	if len(r.Positions) == 0 {
		sb.WriteString("No positions found for this wallet.\n")
		return sb.String()
	}

	sb.WriteString("| Trade | Symbol | Direction | Status | Size (USD) | Leverage | Entry | Exit | PnL (USD) | Fees (USD) |\n")
	sb.WriteString("|-------|--------|-----------|--------|-----------:|---------:|------:|-----:|----------:|-----------:|\n")
	for _, p := range r.Positions {
		exit := "-"
		if p.ExitPrice != nil {
			exit = fmt.Sprintf("%.2f", *p.ExitPrice)
		}
		pnl := "-"
		if p.RealizedPnl != nil {
			pnl = fmt.Sprintf("%.2f", *p.RealizedPnl)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %.1fx | %.2f | %s | %s | %.2f |\n",
			p.TradeID, p.Symbol, p.Direction, p.Status,
			p.SizeUsd, p.Leverage, p.EntryPrice, exit, pnl, p.TotalFees))
	}
	sb.WriteString("\n")

	warned := 0
	for _, p := range r.Positions {
		if p.Warning != "" {
			warned++
		}
	}
	if warned > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, p := range r.Positions {
			if p.Warning != "" {
				sb.WriteString(fmt.Sprintf("- %s: %s\n", p.TradeID, p.Warning))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
