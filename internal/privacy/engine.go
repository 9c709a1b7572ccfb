// Package privacy implements the privacy-tiered access control and audit
// engine: level-based record encryption, the role/consent/break-glass policy
// evaluator, and the per-patient audit trail. Every operation receives an
// explicit operation context and touches no wall-clock time or randomness, so
// independent replicas replaying the same inputs converge on identical ledger
// state.
package privacy

import (
	"github.com/happy0030/healthcare-blockchain-poc/pkg/encryption"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/logger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/monitoring"
)

// Engine composes the record store, policy evaluator, consent and emergency
// grant stores, and the audit trail over one shared ledger. It holds no
// mutable state of its own; the ledger owns every durable byte.
type Engine struct {
	ledger  ledger.Ledger
	cipher  *encryption.Suite
	log     *logger.Logger
	metrics *monitoring.Metrics
}

// NewEngine creates a privacy engine over the given ledger and cipher suite.
// metrics may be nil to disable instrumentation.
func NewEngine(kv ledger.Ledger, cipher *encryption.Suite, log *logger.Logger, metrics *monitoring.Metrics) *Engine {
	return &Engine{
		ledger:  kv,
		cipher:  cipher,
		log:     log,
		metrics: metrics,
	}
}
