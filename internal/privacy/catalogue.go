package privacy

import (
	"encoding/json"
	"fmt"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// RoleEmergency is the reserved role granted unconditional access to every
// privacy level without a break-glass grant.
const RoleEmergency = "EMERGENCY"

// Ledger key namespaces. Each namespace is the leading attribute of a
// composite key, so a prefix scan selects exactly one entity kind.
const (
	nsPrivacyLevel = "privlevel"
	nsAccessRule   = "accessrule"
	nsPatient      = "patient"
	nsConsent      = "consent"
	nsEmergency    = "emergency"
	nsAccessLog    = "accesslog"
	nsBreakGlass   = "breakglass"
)

// privacyLevels is the seeded catalogue of the four sensitivity tiers
var privacyLevels = []types.PrivacyLevelInfo{
	{
		Level:          types.LevelEmergency,
		Name:           "Emergency",
		Description:    "Blood type, allergies - Always accessible",
		EncryptionType: "AES-128-CBC",
	},
	{
		Level:          types.LevelGeneral,
		Name:           "General",
		Description:    "Chronic conditions, medications",
		EncryptionType: "AES-128-CBC",
	},
	{
		Level:          types.LevelSensitive,
		Name:           "Sensitive",
		Description:    "Mental health, reproductive health",
		EncryptionType: "AES-256-CBC",
	},
	{
		Level:          types.LevelHighlySensitive,
		Name:           "Highly Sensitive",
		Description:    "HIV status, substance abuse",
		EncryptionType: "AES-256-CBC",
	},
}

// accessRules is the seeded role policy table
var accessRules = map[string]types.AccessRule{
	"DOCTOR":                {MaxLevel: 2, NeedsConsent: []int{3, 4}},
	"NURSE":                 {MaxLevel: 1, NeedsConsent: []int{2, 3, 4}},
	"EMERGENCY_DOCTOR":      {MaxLevel: 2, NeedsConsent: []int{3, 4}},
	"EMERGENCY_BREAK_GLASS": {MaxLevel: 4, NeedsConsent: []int{}},
	"RESEARCHER":            {MaxLevel: 0, NeedsConsent: []int{1, 2, 3, 4}},
}

// defaultAccessRule applies to unrecognized roles: nothing by default, every
// level requires explicit consent.
var defaultAccessRule = types.AccessRule{
	MaxLevel:     0,
	NeedsConsent: []int{1, 2, 3, 4},
}

// InitCatalogue seeds the privacy level descriptors and the role access rule
// table onto the ledger. Re-running overwrites the prior values and never
// errors, so replicas may initialize repeatedly.
func (e *Engine) InitCatalogue(op opctx.Context) error {
	for _, info := range privacyLevels {
		value, err := json.Marshal(info)
		if err != nil {
			return types.NewInternalError(types.ErrCodeInternalError, "failed to marshal privacy level", err)
		}
		key := ledger.CompositeKey(nsPrivacyLevel, fmt.Sprintf("%d", info.Level))
		if err := e.ledger.Put(key, value); err != nil {
			return types.NewStorageError(types.ErrCodeStorageFailure, "failed to store privacy level", err)
		}
	}

	for role, rule := range accessRules {
		value, err := json.Marshal(rule)
		if err != nil {
			return types.NewInternalError(types.ErrCodeInternalError, "failed to marshal access rule", err)
		}
		if err := e.ledger.Put(ledger.CompositeKey(nsAccessRule, role), value); err != nil {
			return types.NewStorageError(types.ErrCodeStorageFailure, "failed to store access rule", err)
		}
	}

	e.log.WithComponent("catalogue").WithFields(map[string]interface{}{
		"tx_id":         op.TxID,
		"levels_seeded": len(privacyLevels),
		"rules_seeded":  len(accessRules),
	}).Info("Privacy catalogue initialized")

	return nil
}

// GetPrivacyLevels returns the seeded level descriptors in ascending order
func (e *Engine) GetPrivacyLevels() ([]types.PrivacyLevelInfo, error) {
	it := e.ledger.ScanPrefix(ledger.CompositeKey(nsPrivacyLevel))
	defer it.Close()

	var levels []types.PrivacyLevelInfo
	for it.Next() {
		var info types.PrivacyLevelInfo
		if err := json.Unmarshal(it.Value(), &info); err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "corrupt privacy level entry", err)
		}
		levels = append(levels, info)
	}
	if err := it.Err(); err != nil {
		return nil, types.NewStorageError(types.ErrCodeStorageFailure, "failed to scan privacy levels", err)
	}
	return levels, nil
}

// accessRuleFor resolves the access rule for a role, falling back to the
// default rule for roles absent from the seeded table
func (e *Engine) accessRuleFor(role string) (types.AccessRule, error) {
	value, err := e.ledger.Get(ledger.CompositeKey(nsAccessRule, role))
	if err != nil {
		return types.AccessRule{}, types.NewStorageError(types.ErrCodeStorageFailure, "failed to read access rule", err)
	}
	if value == nil {
		return defaultAccessRule, nil
	}

	var rule types.AccessRule
	if err := json.Unmarshal(value, &rule); err != nil {
		return types.AccessRule{}, types.NewInternalError(types.ErrCodeInternalError, "corrupt access rule entry", err)
	}
	return rule, nil
}
