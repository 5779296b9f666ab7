package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	stakesOpened     *prometheus.CounterVec
	rewardsClaimed   *prometheus.CounterVec
	accrualRuns      prometheus.Counter
	accrualSkipped   prometheus.Counter
	tokensBurned     prometheus.Counter
	feeDistributions prometheus.Counter
	votesCast        *prometheus.CounterVec
	totalStaked      prometheus.Gauge
	totalLPTokens    prometheus.Gauge
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			stakesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cgift_positions_opened_total",
				Help: "Count of opened positions by kind (staking or liquidity).",
			}, []string{"kind"}),
			rewardsClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cgift_rewards_claimed_total",
				Help: "Count of reward claims by reward type.",
			}, []string{"type"}),
			accrualRuns: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "cgift_accrual_runs_total",
				Help: "Number of completed reward accrual sweeps.",
			}),
			accrualSkipped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "cgift_accrual_skipped_total",
				Help: "Number of positions skipped during accrual sweeps.",
			}),
			tokensBurned: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "cgift_burns_total",
				Help: "Number of executed supply burns.",
			}),
			feeDistributions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "cgift_fee_distributions_total",
				Help: "Number of executed fee waterfall runs.",
			}),
			votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cgift_votes_cast_total",
				Help: "Count of governance ballots by support direction.",
			}, []string{"support"}),
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "cgift_total_staked",
				Help: "Whole tokens currently staked across active positions.",
			}),
			totalLPTokens: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "cgift_total_lp_tokens",
				Help: "LP tokens currently deposited across active positions.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.stakesOpened,
			ledgerRegistry.rewardsClaimed,
			ledgerRegistry.accrualRuns,
			ledgerRegistry.accrualSkipped,
			ledgerRegistry.tokensBurned,
			ledgerRegistry.feeDistributions,
			ledgerRegistry.votesCast,
			ledgerRegistry.totalStaked,
			ledgerRegistry.totalLPTokens,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) PositionOpened(kind string) {
	m.stakesOpened.WithLabelValues(kind).Inc()
}

func (m *LedgerMetrics) RewardClaimed(rewardType string) {
	m.rewardsClaimed.WithLabelValues(rewardType).Inc()
}

func (m *LedgerMetrics) AccrualRun(skipped int) {
	m.accrualRuns.Inc()
	m.accrualSkipped.Add(float64(skipped))
}

func (m *LedgerMetrics) TokenBurned() { m.tokensBurned.Inc() }

func (m *LedgerMetrics) FeeDistributed() { m.feeDistributions.Inc() }

func (m *LedgerMetrics) VoteCast(support bool) {
	label := "against"
	if support {
		label = "for"
	}
	m.votesCast.WithLabelValues(label).Inc()
}

func (m *LedgerMetrics) SetTotalStaked(v float64) { m.totalStaked.Set(v) }

func (m *LedgerMetrics) SetTotalLPTokens(v float64) { m.totalLPTokens.Set(v) }
