package privacy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// GrantConsent records a patient's time-bounded permission for one grantee to
// see one data type. A prior grant for the same identity is overwritten with
// status ACTIVE and the new expiry. expiryDate must be an RFC 3339 timestamp;
// an empty or unparsable value is rejected before any write, failing closed
// rather than defaulting to an open-ended grant.
func (e *Engine) GrantConsent(op opctx.Context, patientID, granteeID, dataType, expiryDate string) (*types.ConsentGrant, error) {
	if expiryDate == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidExpiry,
			"consent expiry date is required",
			map[string]interface{}{"patient_id": patientID, "grantee_id": granteeID})
	}
	expiry, err := time.Parse(time.RFC3339, expiryDate)
	if err != nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidExpiry,
			fmt.Sprintf("unparsable consent expiry date: %s", expiryDate),
			map[string]interface{}{"patient_id": patientID, "grantee_id": granteeID, "expiry_date": expiryDate})
	}

	grant := types.ConsentGrant{
		PatientID:  patientID,
		GranteeID:  granteeID,
		DataType:   dataType,
		GrantedAt:  op.Timestamp,
		ExpiryDate: expiry,
		Status:     types.ConsentActive,
		DocType:    nsConsent,
	}

	value, err := json.Marshal(grant)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to marshal consent grant", err)
	}

	key := ledger.CompositeKey(nsConsent, patientID, granteeID, dataType)
	if err := e.ledger.Put(key, value); err != nil {
		return nil, types.NewStorageError(types.ErrCodeStorageFailure, "failed to store consent grant", err)
	}

	e.log.Audit(patientID, "grant_consent", dataType, true, map[string]interface{}{
		"tx_id":       op.TxID,
		"grantee_id":  granteeID,
		"expiry_date": expiry,
	})

	return &grant, nil
}

// RevokeConsent overwrites an existing grant with status REVOKED. Revocation
// is sticky: a revoked grant never evaluates as ACTIVE again regardless of
// its expiry.
func (e *Engine) RevokeConsent(op opctx.Context, patientID, granteeID, dataType string) (*types.ConsentGrant, error) {
	key := ledger.CompositeKey(nsConsent, patientID, granteeID, dataType)
	value, err := e.ledger.Get(key)
	if err != nil {
		return nil, types.NewStorageError(types.ErrCodeStorageFailure, "failed to read consent grant", err)
	}
	if value == nil {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound,
			fmt.Sprintf("no consent grant for patient %s grantee %s data type %s", patientID, granteeID, dataType))
	}

	var grant types.ConsentGrant
	if err := json.Unmarshal(value, &grant); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "corrupt consent grant entry", err)
	}

	grant.Status = types.ConsentRevoked
	updated, err := json.Marshal(grant)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to marshal consent grant", err)
	}
	if err := e.ledger.Put(key, updated); err != nil {
		return nil, types.NewStorageError(types.ErrCodeStorageFailure, "failed to store consent grant", err)
	}

	e.log.Audit(patientID, "revoke_consent", dataType, true, map[string]interface{}{
		"tx_id":      op.TxID,
		"grantee_id": granteeID,
	})

	return &grant, nil
}

// hasActiveConsent reports whether an ACTIVE consent grant exists for
// (patient, grantee, data type) as of the operation's timestamp
func (e *Engine) hasActiveConsent(op opctx.Context, patientID, granteeID, dataType string) (bool, error) {
	value, err := e.ledger.Get(ledger.CompositeKey(nsConsent, patientID, granteeID, dataType))
	if err != nil {
		return false, types.NewStorageError(types.ErrCodeStorageFailure, "failed to read consent grant", err)
	}
	if value == nil {
		return false, nil
	}

	var grant types.ConsentGrant
	if err := json.Unmarshal(value, &grant); err != nil {
		// Fail closed on an unreadable grant.
		return false, nil
	}
	return grant.EffectiveStatus(op.Timestamp) == types.ConsentActive, nil
}
