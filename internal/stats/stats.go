// Package stats reduces a server's raw probe samples into the summary
// values the scoring engine consumes.
package stats

import (
	"time"

	mstats "github.com/montanaflynn/stats"

	"github.com/gamedns/gamedns/internal/pinger"
)

// Summary aggregates one server's probe attempts. Latency fields are
// meaningful only when HasRTT is true; a server that never answered
// carries LossPercent == 100 and is not scorable.
type Summary struct {
	Sent     int
	Received int

	LossPercent float64

	HasRTT       bool
	AvgMillis    float64
	MinMillis    float64
	MaxMillis    float64
	MedianMillis float64
	StdevMillis  float64

	// JitterMillis is the mean absolute difference between consecutive
	// successful samples in attempt order, 0 below two successes.
	JitterMillis float64
}

// Aggregate computes the Summary for an ordered sample sequence.
func Aggregate(samples []pinger.Result) Summary {
	sum := Summary{Sent: len(samples)}
	if len(samples) == 0 {
		sum.LossPercent = 100
		return sum
	}

	rtts := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !s.OK {
			continue
		}
		rtts = append(rtts, millis(s.RTT))
	}
	sum.Received = len(rtts)
	sum.LossPercent = 100 * float64(sum.Sent-sum.Received) / float64(sum.Sent)
	if sum.Received == 0 {
		return sum
	}

	sum.HasRTT = true
	// Errors are only possible on empty input, which is excluded above.
	sum.AvgMillis, _ = mstats.Mean(rtts)
	sum.MinMillis, _ = mstats.Min(rtts)
	sum.MaxMillis, _ = mstats.Max(rtts)
	sum.MedianMillis, _ = mstats.Median(rtts)
	if sum.Received > 1 {
		sum.StdevMillis, _ = mstats.StandardDeviationSample(rtts)
	}
	sum.JitterMillis = jitter(rtts)
	return sum
}

// jitter is the mean absolute difference between consecutive RTT
// samples in attempt order.
func jitter(rtts []float64) float64 {
	if len(rtts) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(rtts); i++ {
		diff := rtts[i] - rtts[i-1]
		if diff < 0 {
			diff = -diff
		}
		total += diff
	}
	return total / float64(len(rtts)-1)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
