package privacy

import (
	"fmt"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// CanAccess decides whether a requester may see one record in plaintext. It
// is a pure decision over current ledger state and the operation timestamp;
// it writes nothing. Evaluation order, first match wins:
//
//  1. An unexpired emergency grant for (requester, patient), or the reserved
//     emergency role, grants access at every level.
//  2. Levels at or below the role rule's max level are granted outright.
//  3. Levels the rule marks consent-gated are granted only with an ACTIVE
//     consent grant for (patient, requester, data type).
//  4. Everything else is denied.
//
// Denial is an outcome, not an error; errors signal validation or storage
// failures only.
func (e *Engine) CanAccess(op opctx.Context, requesterID, requesterRole, patientID string, level int, dataType string) (bool, error) {
	if !types.ValidPrivacyLevel(level) {
		return false, types.NewValidationError(types.ErrCodeInvalidLevel,
			fmt.Sprintf("invalid privacy level: %d (must be 1-4)", level),
			map[string]interface{}{"privacy_level": level})
	}

	emergency, err := e.HasEmergencyAccess(op, requesterID, patientID)
	if err != nil {
		return false, err
	}
	if emergency || requesterRole == RoleEmergency {
		return true, nil
	}

	rule, err := e.accessRuleFor(requesterRole)
	if err != nil {
		return false, err
	}

	if level <= rule.MaxLevel {
		return true, nil
	}

	if rule.RequiresConsent(level) {
		return e.hasActiveConsent(op, patientID, requesterID, dataType)
	}

	return false, nil
}
