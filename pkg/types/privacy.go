package types

import (
	"time"
)

// Privacy levels classify record sensitivity from always-accessible
// emergency data (1) up to maximum protection (4).
const (
	LevelEmergency       = 1
	LevelGeneral         = 2
	LevelSensitive       = 3
	LevelHighlySensitive = 4
)

// ValidPrivacyLevel reports whether level is one of the four catalogued tiers
func ValidPrivacyLevel(level int) bool {
	return level >= LevelEmergency && level <= LevelHighlySensitive
}

// PrivacyLevelInfo is an immutable catalogue descriptor for one privacy tier
type PrivacyLevelInfo struct {
	Level          int    `json:"level"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	EncryptionType string `json:"encryption_type"`
}

// AccessRule states, for one role, the highest level granted without consent
// and the set of levels that require explicit patient consent
type AccessRule struct {
	MaxLevel     int   `json:"max_level"`
	NeedsConsent []int `json:"needs_consent"`
}

// RequiresConsent reports whether the rule demands consent for level
func (r AccessRule) RequiresConsent(level int) bool {
	for _, l := range r.NeedsConsent {
		if l == level {
			return true
		}
	}
	return false
}

// PatientRecord is the stored form of one encrypted record, keyed by
// (patient, data type). Immutable once written; a later write for the same
// identity supersedes the prior entry.
type PatientRecord struct {
	PatientID     string    `json:"patient_id"`
	DataType      string    `json:"data_type"`
	EncryptedData string    `json:"encrypted_data"`
	IV            string    `json:"iv"`
	Algorithm     string    `json:"algorithm"`
	PrivacyLevel  int       `json:"privacy_level"`
	Timestamp     time.Time `json:"timestamp"`
	DocType       string    `json:"doc_type"`
	IsEncrypted   bool      `json:"is_encrypted"`
}

// RecordMetadata is what AddRecord returns to the caller: identity and
// classification only, never plaintext or ciphertext
type RecordMetadata struct {
	PatientID    string    `json:"patient_id"`
	DataType     string    `json:"data_type"`
	PrivacyLevel int       `json:"privacy_level"`
	IsEncrypted  bool      `json:"is_encrypted"`
	Timestamp    time.Time `json:"timestamp"`
}

// ConsentStatus is the lifecycle state of a consent grant
type ConsentStatus string

const (
	ConsentActive  ConsentStatus = "ACTIVE"
	ConsentExpired ConsentStatus = "EXPIRED"
	ConsentRevoked ConsentStatus = "REVOKED"
)

// ConsentGrant is a patient-authorized, time-bounded permission for one
// grantee to see one data type. Only ACTIVE and REVOKED are ever stored;
// EXPIRED is computed at read time against the evaluation timestamp.
type ConsentGrant struct {
	PatientID  string        `json:"patient_id"`
	GranteeID  string        `json:"grantee_id"`
	DataType   string        `json:"data_type"`
	GrantedAt  time.Time     `json:"granted_at"`
	ExpiryDate time.Time     `json:"expiry_date"`
	Status     ConsentStatus `json:"status"`
	DocType    string        `json:"doc_type"`
}

// EffectiveStatus computes the grant's status as of the given evaluation time
func (c *ConsentGrant) EffectiveStatus(now time.Time) ConsentStatus {
	if c.Status == ConsentRevoked {
		return ConsentRevoked
	}
	if now.After(c.ExpiryDate) {
		return ConsentExpired
	}
	return c.Status
}

// EmergencyGrant is a break-glass elevated-access grant for one
// (doctor, patient) pair; a new activation overwrites the prior grant
type EmergencyGrant struct {
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
	ExpiresAt     time.Time `json:"expires_at"`
	AccessGranted bool      `json:"access_granted"`
	DocType       string    `json:"doc_type"`
}

// Active reports whether the grant is unexpired as of now
func (g *EmergencyGrant) Active(now time.Time) bool {
	return now.Before(g.ExpiresAt)
}

// AuditEventType distinguishes the two kinds of audit events
type AuditEventType string

const (
	EventNormalAccess     AuditEventType = "NORMAL_ACCESS"
	EventBreakGlassAccess AuditEventType = "BREAK_GLASS_ACCESS"
)

// AuditEvent is one immutable entry in the audit trail. NORMAL_ACCESS events
// carry the requester fields and counters; BREAK_GLASS_ACCESS events carry
// the doctor fields and expiry. TxID guarantees uniqueness for concurrent
// events sharing a timestamp.
type AuditEvent struct {
	EventType AuditEventType `json:"event_type"`
	TxID      string         `json:"tx_id"`
	PatientID string         `json:"patient_id"`
	Timestamp time.Time      `json:"timestamp"`

	RequesterID     string `json:"requester_id,omitempty"`
	RequesterRole   string `json:"requester_role,omitempty"`
	RecordsAccessed int    `json:"records_accessed"`
	RecordsDenied   int    `json:"records_denied"`
	TotalRecords    int    `json:"total_records"`

	DoctorID      string     `json:"doctor_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	AccessGranted bool       `json:"access_granted,omitempty"`
}

// QueryResult is one record's outcome within a patient data query. Denied or
// undecryptable records expose metadata and ciphertext but never plaintext.
type QueryResult struct {
	PatientID     string    `json:"patient_id"`
	DataType      string    `json:"data_type"`
	Data          string    `json:"data"`
	PrivacyLevel  int       `json:"privacy_level"`
	Timestamp     time.Time `json:"timestamp"`
	Decrypted     bool      `json:"decrypted"`
	AccessDenied  bool      `json:"access_denied,omitempty"`
	EncryptedData string    `json:"encrypted_data,omitempty"`
}

// Placeholder payloads returned in place of plaintext
const (
	DataDecryptionFailed = "[ENCRYPTED - Decryption Failed]"
	DataAccessDenied     = "[ENCRYPTED - Access Denied]"
)
