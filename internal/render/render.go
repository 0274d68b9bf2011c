// Package render prints benchmark reports, the server catalogue and the
// run archive as console tables.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/gamedns/gamedns/internal/bench"
	"github.com/gamedns/gamedns/internal/catalog"
	"github.com/gamedns/gamedns/internal/geo"
	"github.com/gamedns/gamedns/internal/history"
	"github.com/gamedns/gamedns/internal/rank"
)

// The top five ranks are always shown; everything below is elided
// unless showAll is set.
const minVisibleRanks = 5

var (
	header = color.New(color.FgCyan, color.Bold)
	gold   = color.New(color.FgYellow, color.Bold)
	silver = color.New(color.FgWhite, color.Bold)
	bronze = color.New(color.FgRed)
	good   = color.New(color.FgGreen, color.Bold)
	bad    = color.New(color.FgRed, color.Bold)
	dim    = color.New(color.Faint)
)

func rankStyle(rank int) *color.Color {
	switch rank {
	case 1:
		return gold
	case 2:
		return silver
	case 3:
		return bronze
	}
	return nil
}

// Results prints the ranked result table, best server first.
func Results(w io.Writer, report bench.Report, showAll bool) {
	if !report.Scorable() {
		bad.Fprintln(w, "No scorable servers: every server was unreachable.")
		return
	}

	visible := report.Ranked
	hidden := 0
	if !showAll && len(visible) > minVisibleRanks {
		hidden = len(visible) - minVisibleRanks
		visible = visible[:minVisibleRanks]
	}

	header.Fprintln(w, "DNS Server Test Results (sorted by gaming score, lower is better)")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tProvider\tIP Address\tScore\tAvg (ms)\tMin (ms)\tMax (ms)\tJitter (ms)\tLoss")
	for i, res := range visible {
		pos := i + 1
		line := fmt.Sprintf("%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.1f%%",
			pos, res.Server.Name, res.Server.Address, res.Score,
			res.Stats.AvgMillis, res.Stats.MinMillis, res.Stats.MaxMillis,
			res.Stats.JitterMillis, res.Stats.LossPercent)
		if style := rankStyle(pos); style != nil {
			line = style.Sprint(line)
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
	if hidden > 0 {
		dim.Fprintf(w, "… %d more servers hidden (show_all_servers: false)\n", hidden)
	}
}

// Failed prints the servers that could not be ranked.
func Failed(w io.Writer, unscorable []bench.SampleSet) {
	if len(unscorable) == 0 {
		return
	}
	bad.Fprintln(w, "Failed to test:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, set := range unscorable {
		reason := "no replies"
		if set.Err != nil {
			reason = fmt.Sprintf("could not test: %v", set.Err)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", set.Server.Name, set.Server.Address, reason)
	}
	tw.Flush()
}

// Recommendation prints the suggested primary/secondary DNS pair.
func Recommendation(w io.Writer, rec rank.Recommendation) {
	if rec.Primary == nil {
		bad.Fprintln(w, "No recommendation: no scorable servers in this run.")
		return
	}
	header.Fprintln(w, "Recommended DNS configuration for gaming")
	good.Fprintf(w, "  Primary DNS:   %s (%s)\n", rec.Primary.Server.Address, rec.Primary.Server.Name)
	if rec.Secondary != nil {
		good.Fprintf(w, "  Secondary DNS: %s (%s)\n", rec.Secondary.Server.Address, rec.Secondary.Server.Name)
	}
	dim.Fprintln(w, "  Low latency and jitter reduce lag in interactive traffic.")
}

// Catalogue prints the configured server list, with geo annotations
// when a database is available.
func Catalogue(w io.Writer, servers []catalog.Server, resolver *geo.Resolver) {
	header.Fprintln(w, "Configured DNS servers")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, srv := range servers {
		origin := ""
		if srv.IsCustom {
			origin = "custom"
		}
		location := ""
		if loc, ok := resolver.Lookup(srv.Address); ok {
			location = loc.CountryCode
			if loc.ASOrg != "" {
				location = fmt.Sprintf("%s AS%d %s", loc.CountryCode, loc.ASN, loc.ASOrg)
			}
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", srv.Name, srv.Address, origin, location)
	}
	tw.Flush()
}

// RunResults prints the archived ranking of a single run.
func RunResults(w io.Writer, runID string, rows []history.ResultRow) {
	if len(rows) == 0 {
		dim.Fprintf(w, "No results archived for run %s.\n", runID)
		return
	}
	header.Fprintf(w, "Archived results for run %s\n", runID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tProvider\tIP Address\tScore\tAvg (ms)\tMin (ms)\tMax (ms)\tJitter (ms)\tLoss")
	for _, row := range rows {
		line := fmt.Sprintf("%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.1f%%",
			row.Rank, row.Name, row.Address, row.Score,
			row.AvgMillis, row.MinMillis, row.MaxMillis, row.JitterMs, row.LossPercent)
		if style := rankStyle(row.Rank); style != nil {
			line = style.Sprint(line)
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}

// History prints archived runs, newest first.
func History(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		dim.Fprintln(w, "No archived runs.")
		return
	}
	header.Fprintln(w, "Benchmark history")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Started\tRun ID\tServers\tScorable\tBest server")
	for _, run := range runs {
		best := run.PrimaryName
		if best == "" {
			best = "-"
		} else {
			best = fmt.Sprintf("%s (%s)", run.PrimaryName, run.PrimaryAddr)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.ID, run.Servers, run.Scorable, best)
	}
	tw.Flush()
}
