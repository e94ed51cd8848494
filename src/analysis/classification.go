package analysis

import (
	"fmt"
	"math"
	"strings"

	"coin-observer/src/analysis/core"
	"coin-observer/src/models"
)

// Policy names accepted by ranking.policy.
const (
	PolicyStrict  = "strict"
	PolicyRelaxed = "relaxed"
)

const weeklyDays = 7

// Default tier thresholds.
var (
	DefaultImmediate = models.MHotThreshold{PriceChangePct: 1.5, VolumeSpikePct: 150, MomentumPct: 40}
	DefaultShort     = models.MHotThreshold{PriceChangePct: 3, VolumeSpikePct: 100, MomentumPct: 35}
	DefaultMedium    = models.MHotThreshold{PriceChangePct: 8, VolumeSpikePct: 75, MomentumPct: 50}
	DefaultStable    = models.MStableThreshold{WeeklyGrowthPct: 10, MaxDailyVolatilityPct: 15, MinPositiveDays: 4}
)

// -----------------------------------------------------------------------------

// ClassificationInput is everything a policy may look at for one symbol.
type ClassificationInput struct {
	Ticker   models.MTicker24h
	Metrics  models.MGrowthMetrics
	Daily    []models.MCandle
	Change5m float64 // live tracker change, or the candle one
}

// Classification is the verdict of a policy.
type Classification struct {
	IsHot5min  bool
	IsHot15min bool
	IsHot1h    bool
	IsHot      bool
	IsStable   bool
	Score      float64
}

// ClassificationPolicy decides which symbols are hot or stable.
type ClassificationPolicy interface {
	Name() string
	Classify(in ClassificationInput) Classification
}

// -----------------------------------------------------------------------------

// NewPolicy builds the policy named by cfg.Ranking.Policy. An empty name
// selects the strict policy.
func NewPolicy(cfg *models.MConfig) (ClassificationPolicy, error) {
	name := PolicyStrict
	cls := models.MClassificationConfig{}
	if cfg != nil {
		if cfg.Ranking.Policy != "" {
			name = strings.ToLower(cfg.Ranking.Policy)
		}
		cls = cfg.Classification
	}

	switch name {
	case PolicyStrict:
		return NewStrictPolicy(cls), nil
	case PolicyRelaxed:
		return &RelaxedPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown classification policy %q", name)
	}
}

// -----------------------------------------------------------------------------

// IsHot reports whether the absolute price change, the volume change and the
// absolute momentum all reach the tier minimums.
func IsHot(priceChange, volumeChange, momentum float64, th models.MHotThreshold) bool {
	return math.Abs(priceChange) >= th.PriceChangePct &&
		volumeChange >= th.VolumeSpikePct &&
		math.Abs(momentum) >= th.MomentumPct
}

// -----------------------------------------------------------------------------

// IsStableGrowth checks the last 7 daily candles for steady growth: enough
// weekly gain, no single day moving more than the allowed volatility, and
// enough up days. The first day counts as a flat day.
func IsStableGrowth(daily []models.MCandle, th models.MStableThreshold) bool {
	if len(daily) < weeklyDays {
		return false
	}
	week := daily[len(daily)-weeklyDays:]

	first := week[0].Open
	if first == 0 {
		return false
	}
	weeklyGrowth := core.CalculatePercentChange(week[len(week)-1].Close, first)
	if weeklyGrowth < th.WeeklyGrowthPct {
		return false
	}

	maxMove := 0.0
	positiveDays := 0
	for i := 1; i < len(week); i++ {
		move := core.CalculatePercentChange(week[i].Close, week[i-1].Close)
		if math.Abs(move) > maxMove {
			maxMove = math.Abs(move)
		}
		if move > 0 {
			positiveDays++
		}
	}
	if maxMove > th.MaxDailyVolatilityPct {
		return false
	}
	return positiveDays >= th.MinPositiveDays
}

// -----------------------------------------------------------------------------
// StrictPolicy applies the tiered conjunctive rules on candle metrics and the
// weekly stable-growth rule on daily candles.
// -----------------------------------------------------------------------------

type StrictPolicy struct {
	Immediate models.MHotThreshold
	Short     models.MHotThreshold
	Medium    models.MHotThreshold
	Stable    models.MStableThreshold
}

// NewStrictPolicy fills zero thresholds with the defaults.
func NewStrictPolicy(cls models.MClassificationConfig) *StrictPolicy {
	p := &StrictPolicy{
		Immediate: cls.Immediate,
		Short:     cls.Short,
		Medium:    cls.Medium,
		Stable:    cls.Stable,
	}
	if p.Immediate == (models.MHotThreshold{}) {
		p.Immediate = DefaultImmediate
	}
	if p.Short == (models.MHotThreshold{}) {
		p.Short = DefaultShort
	}
	if p.Medium == (models.MHotThreshold{}) {
		p.Medium = DefaultMedium
	}
	if p.Stable == (models.MStableThreshold{}) {
		p.Stable = DefaultStable
	}
	return p
}

func (p *StrictPolicy) Name() string { return PolicyStrict }

func (p *StrictPolicy) Classify(in ClassificationInput) Classification {
	m := in.Metrics
	c := Classification{
		IsHot5min:  IsHot(in.Change5m, m.VolumeChange5m, m.Momentum, p.Immediate),
		IsHot15min: IsHot(m.PriceChange15m, m.VolumeChange15m, m.Momentum, p.Short),
		IsHot1h:    IsHot(m.PriceChange1h, m.VolumeChange1h, m.Momentum, p.Medium),
		IsStable:   IsStableGrowth(in.Daily, p.Stable),
		Score:      m.Momentum,
	}
	c.IsHot = c.IsHot5min || c.IsHot15min || c.IsHot1h
	return c
}

// -----------------------------------------------------------------------------
// RelaxedPolicy is the looser live rule set working from the 24h ticker and
// the 5 minute change only.
// -----------------------------------------------------------------------------

type RelaxedPolicy struct{}

func (p *RelaxedPolicy) Name() string { return PolicyRelaxed }

func (p *RelaxedPolicy) Classify(in ClassificationInput) Classification {
	change5m := in.Change5m
	change24h := in.Ticker.PriceChangePercent
	volume := in.Ticker.Volume

	hot := change5m > 0.8 ||
		(change5m > 0.3 && change24h > 5) ||
		(change24h > 10 && volume > 1_000_000 && change5m >= -0.5)

	return Classification{
		IsHot5min: hot,
		IsHot:     hot,
		IsStable:  relaxedStable(in.Ticker),
		Score:     change24h + 3*math.Max(change5m, 0),
	}
}

// relaxedStable wants a moderate 24h gain inside a narrow daily range.
func relaxedStable(t models.MTicker24h) bool {
	if t.LastPrice <= 0 {
		return false
	}
	spread := (t.HighPrice - t.LowPrice) / t.LastPrice * 100
	return t.PriceChangePercent > 2 &&
		t.PriceChangePercent < 20 &&
		spread < 10 &&
		t.Volume > 500_000
}
