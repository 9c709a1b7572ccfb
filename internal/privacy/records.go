package privacy

import (
	"encoding/json"
	"fmt"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// AddRecord encrypts plaintext at the given privacy level and persists it
// keyed by (patient, data type). A later write for the same identity
// supersedes the prior entry. Validation happens before any ledger write, so
// a rejected call leaves no partial state. The returned metadata carries no
// plaintext and no ciphertext.
func (e *Engine) AddRecord(op opctx.Context, patientID, dataType, plaintext string, level int) (*types.RecordMetadata, error) {
	if !types.ValidPrivacyLevel(level) {
		return nil, types.NewValidationError(types.ErrCodeInvalidLevel,
			fmt.Sprintf("invalid privacy level: %d (must be 1-4)", level),
			map[string]interface{}{"patient_id": patientID, "data_type": dataType, "privacy_level": level})
	}

	envelope, err := e.cipher.Encrypt(op, plaintext, level)
	if err != nil {
		return nil, err
	}

	record := types.PatientRecord{
		PatientID:     patientID,
		DataType:      dataType,
		EncryptedData: envelope.EncryptedData,
		IV:            envelope.IV,
		Algorithm:     envelope.Algorithm,
		PrivacyLevel:  level,
		Timestamp:     op.Timestamp,
		DocType:       nsPatient,
		IsEncrypted:   true,
	}

	value, err := json.Marshal(record)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to marshal patient record", err)
	}

	key := ledger.CompositeKey(nsPatient, patientID, dataType)
	if err := e.ledger.Put(key, value); err != nil {
		return nil, types.NewStorageError(types.ErrCodeStorageFailure, "failed to store patient record", err)
	}

	e.metrics.RecordWrite(level)
	e.log.WithComponent("records").WithFields(map[string]interface{}{
		"tx_id":         op.TxID,
		"patient_id":    patientID,
		"data_type":     dataType,
		"privacy_level": level,
	}).Info("Patient record stored")

	return &types.RecordMetadata{
		PatientID:    patientID,
		DataType:     dataType,
		PrivacyLevel: level,
		IsEncrypted:  true,
		Timestamp:    op.Timestamp,
	}, nil
}

// GetRecord returns the stored record for one (patient, data type) identity,
// ciphertext included, plaintext never
func (e *Engine) GetRecord(patientID, dataType string) (*types.PatientRecord, error) {
	value, err := e.ledger.Get(ledger.CompositeKey(nsPatient, patientID, dataType))
	if err != nil {
		return nil, types.NewStorageError(types.ErrCodeStorageFailure, "failed to read patient record", err)
	}
	if value == nil {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound,
			fmt.Sprintf("no record for patient %s data type %s", patientID, dataType))
	}

	var record types.PatientRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "corrupt patient record entry", err)
	}
	return &record, nil
}

// RecordIterator walks a patient's records lazily in ledger scan order. The
// order is unspecified but identical across replicas. Callers must Close it.
type RecordIterator struct {
	it  ledger.Iterator
	cur *types.PatientRecord
	err error
}

// ListRecords returns a lazy iterator over every record stored for a patient,
// one entry per data type
func (e *Engine) ListRecords(patientID string) *RecordIterator {
	return &RecordIterator{it: e.ledger.ScanPrefix(ledger.CompositeKey(nsPatient, patientID))}
}

// Next advances to the next record, reporting false at the end or on error
func (r *RecordIterator) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.it.Next() {
		if err := r.it.Err(); err != nil {
			r.err = types.NewStorageError(types.ErrCodeStorageFailure, "failed to scan patient records", err)
		}
		return false
	}

	var record types.PatientRecord
	if err := json.Unmarshal(r.it.Value(), &record); err != nil {
		r.err = types.NewInternalError(types.ErrCodeInternalError, "corrupt patient record entry", err)
		return false
	}
	r.cur = &record
	return true
}

// Record returns the record at the current position
func (r *RecordIterator) Record() *types.PatientRecord {
	return r.cur
}

// Err reports any failure encountered during iteration
func (r *RecordIterator) Err() error {
	return r.err
}

// Close releases the underlying ledger iterator
func (r *RecordIterator) Close() error {
	return r.it.Close()
}
