// Package rank turns per-server statistics into a comparable gaming
// score and orders servers into a deterministic ranking with a
// primary/secondary recommendation.
package rank

import (
	"sort"

	"github.com/gamedns/gamedns/internal/catalog"
	"github.com/gamedns/gamedns/internal/stats"
)

// Weighting of the score components. Fixed policy: latency dominates,
// jitter matters almost as much for real-time traffic, loss rounds it
// out. Not user-configurable.
const (
	weightLatency = 0.5
	weightJitter  = 0.3
	weightLoss    = 0.2
)

// LossScaleMillis converts a loss percentage into a millisecond-scale
// penalty: each percent of loss weighs like 10 ms of latency before
// weighting, so one dropped probe in a default 10-probe run costs
// 0.2 * 10 * 10 = 20 ms of score.
const LossScaleMillis = 10.0

// Result is a scored server. Lower score is better. Index is the
// catalogue position, used as the final ordering tie-breaker.
type Result struct {
	Server catalog.Server
	Index  int
	Stats  stats.Summary
	Score  float64
}

// Scorable reports whether a server answered at least once. Servers at
// 100% loss are excluded from ranking and recommendation entirely.
func Scorable(s stats.Summary) bool {
	return s.LossPercent < 100 && s.HasRTT
}

// Score computes the gaming score. Defined only for scorable summaries.
func Score(s stats.Summary) float64 {
	return weightLatency*s.AvgMillis +
		weightJitter*s.JitterMillis +
		weightLoss*s.LossPercent*LossScaleMillis
}

// Rank filters out unscorable servers and sorts the rest ascending by
// score, with ties broken by average latency and then catalogue order.
// The input slice is not modified.
func Rank(results []Result) []Result {
	ranked := make([]Result, 0, len(results))
	for _, r := range results {
		if Scorable(r.Stats) {
			ranked = append(ranked, r)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.Stats.AvgMillis != b.Stats.AvgMillis {
			return a.Stats.AvgMillis < b.Stats.AvgMillis
		}
		return a.Index < b.Index
	})
	return ranked
}

// Recommendation holds the suggested primary/secondary pair. Secondary
// is nil with fewer than two scorable servers; both are nil when
// nothing was scorable, which callers must report rather than crash on.
type Recommendation struct {
	Primary   *Result
	Secondary *Result
}

// Recommend picks the best-ranked server as primary. The secondary is
// the best-ranked server from a different provider, for redundancy
// against a provider-wide outage; when every scorable server shares
// the primary's provider, rank 2 is used instead.
func Recommend(ranked []Result) Recommendation {
	if len(ranked) == 0 {
		return Recommendation{}
	}
	rec := Recommendation{Primary: &ranked[0]}
	if len(ranked) < 2 {
		return rec
	}
	provider := ranked[0].Server.Provider()
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Server.Provider() != provider {
			rec.Secondary = &ranked[i]
			return rec
		}
	}
	rec.Secondary = &ranked[1]
	return rec
}
