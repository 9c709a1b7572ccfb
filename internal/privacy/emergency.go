package privacy

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// breakGlassDuration is how long an emergency grant stays active after
// activation.
const breakGlassDuration = time.Hour

// BreakGlassAccess activates emergency access for a doctor over one patient's
// records. It is an override, not a request: any call with a non-empty reason
// succeeds, replacing a prior grant for the same (doctor, patient) pair. The
// grant and its audit event share the activation timestamp and expiry.
func (e *Engine) BreakGlassAccess(op opctx.Context, doctorID, patientID, reason string) (*types.AuditEvent, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, types.NewValidationError(types.ErrCodeMissingReason,
			"break-glass activation requires a reason",
			map[string]interface{}{"doctor_id": doctorID, "patient_id": patientID})
	}

	expiresAt := op.Offset(breakGlassDuration)
	grant := types.EmergencyGrant{
		DoctorID:      doctorID,
		PatientID:     patientID,
		Reason:        reason,
		Timestamp:     op.Timestamp,
		ExpiresAt:     expiresAt,
		AccessGranted: true,
		DocType:       nsEmergency,
	}

	value, err := json.Marshal(grant)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to marshal emergency grant", err)
	}
	key := ledger.CompositeKey(nsEmergency, doctorID, patientID)
	if err := e.ledger.Put(key, value); err != nil {
		return nil, types.NewStorageError(types.ErrCodeStorageFailure, "failed to store emergency grant", err)
	}

	event := types.AuditEvent{
		EventType: types.EventBreakGlassAccess,
		TxID:      op.TxID,
		PatientID: patientID,
		Timestamp: op.Timestamp,
		DoctorID:  doctorID,
		Reason:    reason,
		ExpiresAt: &expiresAt,

		AccessGranted: true,
	}

	if err := e.appendAudit(op, nsBreakGlass, &event); err != nil {
		return nil, err
	}

	e.metrics.RecordBreakGlass(doctorID)
	e.log.Security("break_glass_activated", doctorID, map[string]interface{}{
		"tx_id":      op.TxID,
		"patient_id": patientID,
		"reason":     reason,
		"expires_at": expiresAt,
	})

	return &event, nil
}

// HasEmergencyAccess reports whether an unexpired emergency grant exists for
// (requester, patient) as of the operation's timestamp
func (e *Engine) HasEmergencyAccess(op opctx.Context, requesterID, patientID string) (bool, error) {
	value, err := e.ledger.Get(ledger.CompositeKey(nsEmergency, requesterID, patientID))
	if err != nil {
		return false, types.NewStorageError(types.ErrCodeStorageFailure, "failed to read emergency grant", err)
	}
	if value == nil {
		return false, nil
	}

	var grant types.EmergencyGrant
	if err := json.Unmarshal(value, &grant); err != nil {
		// Fail closed on an unreadable grant.
		return false, nil
	}
	return grant.Active(op.Timestamp), nil
}
