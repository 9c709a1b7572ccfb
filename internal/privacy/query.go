package privacy

import (
	"github.com/happy0030/healthcare-blockchain-poc/pkg/monitoring"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// QueryPatientData returns every record stored for a patient, decrypting the
// ones the requester may see. Denied records and records that fail to decrypt
// come back with placeholder payloads and their metadata intact; neither
// condition fails the query. Exactly one NORMAL_ACCESS audit event
// summarizing the counts is appended, even when zero records exist.
func (e *Engine) QueryPatientData(op opctx.Context, patientID, requesterID, requesterRole string) ([]types.QueryResult, error) {
	records := e.ListRecords(patientID)
	defer records.Close()

	results := []types.QueryResult{}
	accessed, denied := 0, 0

	for records.Next() {
		record := records.Record()
		result := types.QueryResult{
			PatientID:    record.PatientID,
			DataType:     record.DataType,
			PrivacyLevel: record.PrivacyLevel,
			Timestamp:    record.Timestamp,
		}

		allowed, err := e.CanAccess(op, requesterID, requesterRole, patientID, record.PrivacyLevel, record.DataType)
		if err != nil {
			return nil, err
		}

		switch {
		case !allowed:
			result.Data = types.DataAccessDenied
			result.AccessDenied = true
			result.EncryptedData = record.EncryptedData
			denied++
			e.metrics.RecordAccessDecision(requesterRole, record.PrivacyLevel, monitoring.OutcomeDenied)

		default:
			plaintext, err := e.cipher.Decrypt(record.EncryptedData, record.IV, record.PrivacyLevel, record.Algorithm)
			if err != nil {
				if !types.IsDecryption(err) {
					return nil, err
				}
				// Undecryptable records are a recoverable condition; the
				// query carries on with a placeholder.
				result.Data = types.DataDecryptionFailed
				e.metrics.RecordAccessDecision(requesterRole, record.PrivacyLevel, monitoring.OutcomeFailed)
				e.log.WithComponent("query").WithError(err).WithFields(map[string]interface{}{
					"tx_id":      op.TxID,
					"patient_id": patientID,
					"data_type":  record.DataType,
				}).Warn("Record decryption failed")
				break
			}
			result.Data = plaintext
			result.Decrypted = true
			accessed++
			e.metrics.RecordAccessDecision(requesterRole, record.PrivacyLevel, monitoring.OutcomeGranted)
		}

		results = append(results, result)
	}
	if err := records.Err(); err != nil {
		return nil, err
	}

	event := types.AuditEvent{
		EventType: types.EventNormalAccess,
		TxID:      op.TxID,
		PatientID: patientID,
		Timestamp: op.Timestamp,

		RequesterID:     requesterID,
		RequesterRole:   requesterRole,
		RecordsAccessed: accessed,
		RecordsDenied:   denied,
		TotalRecords:    len(results),
	}
	if err := e.appendAudit(op, nsAccessLog, &event); err != nil {
		return nil, err
	}

	e.log.PHIAccess(requesterID, patientID, "query", "patient_records", accessed > 0, map[string]interface{}{
		"tx_id":            op.TxID,
		"requester_role":   requesterRole,
		"records_accessed": accessed,
		"records_denied":   denied,
		"total_records":    len(results),
	})

	return results, nil
}
