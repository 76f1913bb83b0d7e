package config

import "sync"

// RuntimePolicy is the operator-tunable part of the configuration.
// Chat commands update it while the process runs.
type RuntimePolicy struct {
	// MinSolTransfer and MaxSolTransfer bound which incoming transfers
	// qualify for wallet discovery.
	MinSolTransfer float64 `mapstructure:"min_sol_transfer"`
	MaxSolTransfer float64 `mapstructure:"max_sol_transfer"`

	// TradeSize is the SOL amount recorded for mirrored trades.
	TradeSize float64 `mapstructure:"trade_size"`

	// TPPercent and SLPercent are the take-profit and stop-loss
	// thresholds stamped onto new trades.
	TPPercent float64 `mapstructure:"tp_percent"`
	SLPercent float64 `mapstructure:"sl_percent"`

	// AutoCopy switches mirrored trades from Test to Real mode.
	AutoCopy bool `mapstructure:"auto_copy"`

	// DiscoveryEnabled turns transfer-based wallet discovery on or off.
	DiscoveryEnabled bool `mapstructure:"discovery_enabled"`
}

// RuntimePatch is a merge-patch for Runtime.Update. Nil fields are
// left untouched.
type RuntimePatch struct {
	MinSolTransfer   *float64
	MaxSolTransfer   *float64
	TradeSize        *float64
	TPPercent        *float64
	SLPercent        *float64
	AutoCopy         *bool
	DiscoveryEnabled *bool
}

// Runtime is the shared, mutex-guarded runtime policy. Components read
// live values through Policy instead of closing over config fields.
type Runtime struct {
	mu     sync.RWMutex
	policy RuntimePolicy
}

// NewRuntime creates a Runtime seeded with the given initial policy.
func NewRuntime(initial RuntimePolicy) *Runtime {
	return &Runtime{policy: initial}
}

// Policy returns the current policy snapshot.
func (r *Runtime) Policy() RuntimePolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// Update applies a merge-patch and returns the resulting policy.
func (r *Runtime) Update(patch RuntimePatch) RuntimePolicy {
	r.mu.Lock()
	defer r.mu.Unlock()

	if patch.MinSolTransfer != nil {
		r.policy.MinSolTransfer = *patch.MinSolTransfer
	}
	if patch.MaxSolTransfer != nil {
		r.policy.MaxSolTransfer = *patch.MaxSolTransfer
	}
	if patch.TradeSize != nil {
		r.policy.TradeSize = *patch.TradeSize
	}
	if patch.TPPercent != nil {
		r.policy.TPPercent = *patch.TPPercent
	}
	if patch.SLPercent != nil {
		r.policy.SLPercent = *patch.SLPercent
	}
	if patch.AutoCopy != nil {
		r.policy.AutoCopy = *patch.AutoCopy
	}
	if patch.DiscoveryEnabled != nil {
		r.policy.DiscoveryEnabled = *patch.DiscoveryEnabled
	}

	return r.policy
}
