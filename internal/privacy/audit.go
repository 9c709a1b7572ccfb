package privacy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// appendAudit writes one immutable audit event into the given namespace. The
// key embeds the zero-padded millisecond timestamp so a prefix scan yields
// events in chronological order, and the transaction identifier so concurrent
// events sharing a timestamp never collide.
func (e *Engine) appendAudit(op opctx.Context, namespace string, event *types.AuditEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to marshal audit event", err)
	}

	key := ledger.CompositeKey(namespace, event.PatientID, fmt.Sprintf("%013d", op.Millis()), op.TxID)
	if err := e.ledger.Put(key, value); err != nil {
		return types.NewStorageError(types.ErrCodeStorageFailure, "failed to append audit event", err)
	}
	return nil
}

// auditEntry pairs an event with its key stripped of the namespace, so
// entries from both namespaces can be merged in operation order (the keys
// embed patient, millisecond timestamp, and transaction id).
type auditEntry struct {
	orderKey string
	event    types.AuditEvent
}

// GetAuditTrail returns every audit event recorded for a patient, both normal
// access summaries and break-glass activations, newest first. Events sharing
// a timestamp keep operation order, decided by the millisecond-and-txid key
// suffix rather than by which namespace they live in. The read aggregates
// only; stored events are never touched.
func (e *Engine) GetAuditTrail(patientID string) ([]types.AuditEvent, error) {
	var entries []auditEntry
	for _, namespace := range []string{nsAccessLog, nsBreakGlass} {
		collected, err := e.scanAuditNamespace(namespace, patientID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, collected...)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].orderKey < entries[j].orderKey
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].event.Timestamp.After(entries[j].event.Timestamp)
	})

	events := make([]types.AuditEvent, len(entries))
	for i, entry := range entries {
		events[i] = entry.event
	}
	return events, nil
}

func (e *Engine) scanAuditNamespace(namespace, patientID string) ([]auditEntry, error) {
	it := e.ledger.ScanPrefix(ledger.CompositeKey(namespace, patientID))
	defer it.Close()

	trim := len(ledger.CompositeKey(namespace))
	var entries []auditEntry
	for it.Next() {
		var event types.AuditEvent
		if err := json.Unmarshal(it.Value(), &event); err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "corrupt audit event entry", err)
		}
		entries = append(entries, auditEntry{orderKey: it.Key()[trim:], event: event})
	}
	if err := it.Err(); err != nil {
		return nil, types.NewStorageError(types.ErrCodeStorageFailure, "failed to scan audit events", err)
	}
	return entries, nil
}
