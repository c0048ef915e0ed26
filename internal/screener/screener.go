// Package screener ranks a universe of tickers by a composite
// quality/value/growth/stability score using percentile normalization.
package screener

import (
	"sort"

	"go.uber.org/zap"

	"github.com/eddy-labs/stocks-cli/internal/model"
)

// neutralScore is assigned when a raw metric is missing for a ticker, so
// the ticker stays in the screen instead of being excluded.
const neutralScore = 0.5

// ValueScore derives the value score from fair value and current price.
// The score is the relative discount, floored at 0 whenever the stock
// trades at or above fair value. A non-positive fair value is not
// meaningful: the second return is false and the score is 0, and such
// tickers are excluded from value ranking.
func ValueScore(fairValue, currentPrice float64) (float64, bool) {
	if fairValue <= 0 {
		return 0, false
	}
	score := (fairValue - currentPrice) / fairValue
	if score < 0 {
		score = 0
	}
	return score, true
}

// DiscountPct returns the percentage gap between fair value and price, nil
// when fair value is non-positive or price is zero.
func DiscountPct(fairValue, currentPrice float64) *float64 {
	if fairValue <= 0 || currentPrice == 0 {
		return nil
	}
	pct := (fairValue - currentPrice) / currentPrice * 100
	return &pct
}

// Score computes percentile component scores and the weighted composite for
// the whole collection, returning rows ranked descending by overall score.
func Score(records []model.TickerMetrics, weights Weights) []model.ScoredTicker {
	if len(records) == 0 {
		return nil
	}

	quality := percentileScores(records, func(m model.TickerMetrics) *float64 { return m.ROE }, false)
	growth := percentileScores(records, func(m model.TickerMetrics) *float64 { return m.RevenueGrowth }, false)
	// Lower leverage is better, so the debt-to-equity rank is inverted.
	stability := percentileScores(records, func(m model.TickerMetrics) *float64 { return m.DebtToEquity }, true)

	scored := make([]model.ScoredTicker, len(records))
	for i, rec := range records {
		scored[i] = model.ScoredTicker{
			TickerMetrics:  rec,
			QualityScore:   quality[i],
			GrowthScore:    growth[i],
			StabilityScore: stability[i],
		}
		scored[i].OverallScore = weights.Value*rec.ValueScore +
			weights.Quality*quality[i] +
			weights.Growth*growth[i] +
			weights.Stability*stability[i]
	}

	assignRanks(scored)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].OverallScore > scored[j].OverallScore
	})

	zap.L().Info("screener: scored universe",
		zap.Int("tickers", len(scored)),
		zap.Float64("w_value", weights.Value),
		zap.Float64("w_quality", weights.Quality),
		zap.Float64("w_growth", weights.Growth),
		zap.Float64("w_stability", weights.Stability),
	)

	return scored
}

// percentileScores computes a min-tie percentile rank for each record over
// the non-missing values of one raw metric. Missing values receive the
// neutral score. With invert set, the rank is flipped so lower raw values
// score higher.
func percentileScores(records []model.TickerMetrics, metric func(model.TickerMetrics) *float64, invert bool) []float64 {
	var present []float64
	for _, rec := range records {
		if v := metric(rec); v != nil {
			present = append(present, *v)
		}
	}

	scores := make([]float64, len(records))
	for i, rec := range records {
		v := metric(rec)
		if v == nil || len(present) == 0 {
			scores[i] = neutralScore
			continue
		}
		rank := percentileRankMin(present, *v)
		if invert {
			rank = 1 - rank
		}
		scores[i] = rank
	}
	return scores
}

// percentileRankMin returns (count of values strictly below v, plus one)
// divided by the collection size: ties share the lowest rank in their tie
// group.
func percentileRankMin(values []float64, v float64) float64 {
	below := 0
	for _, other := range values {
		if other < v {
			below++
		}
	}
	return float64(below+1) / float64(len(values))
}

// assignRanks fills the per-metric integer ranks, min-tie convention with
// 1 as the best rank. Tickers whose fair value was not meaningful get no
// value rank.
func assignRanks(scored []model.ScoredTicker) {
	rank := func(get func(model.ScoredTicker) float64, set func(*model.ScoredTicker, int), include func(model.ScoredTicker) bool) {
		var values []float64
		for _, s := range scored {
			if include(s) {
				values = append(values, get(s))
			}
		}
		for i := range scored {
			if !include(scored[i]) {
				set(&scored[i], 0)
				continue
			}
			// Rank 1 is the highest score: count strictly greater values.
			above := 0
			for _, v := range values {
				if v > get(scored[i]) {
					above++
				}
			}
			set(&scored[i], above+1)
		}
	}

	all := func(model.ScoredTicker) bool { return true }

	rank(func(s model.ScoredTicker) float64 { return s.ValueScore },
		func(s *model.ScoredTicker, r int) { s.ValueRank = r },
		func(s model.ScoredTicker) bool { return s.ValueMeaningful })
	rank(func(s model.ScoredTicker) float64 { return s.QualityScore },
		func(s *model.ScoredTicker, r int) { s.QualityRank = r }, all)
	rank(func(s model.ScoredTicker) float64 { return s.GrowthScore },
		func(s *model.ScoredTicker, r int) { s.GrowthRank = r }, all)
	rank(func(s model.ScoredTicker) float64 { return s.StabilityScore },
		func(s *model.ScoredTicker, r int) { s.StabilityRank = r }, all)
	rank(func(s model.ScoredTicker) float64 { return s.OverallScore },
		func(s *model.ScoredTicker, r int) { s.OverallRank = r }, all)
}
