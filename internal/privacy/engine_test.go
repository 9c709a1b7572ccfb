package privacy

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/encryption"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/ledger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/logger"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

var (
	suiteOnce sync.Once
	suite     *encryption.Suite
)

// sharedSuite avoids re-deriving scrypt keys for every test
func sharedSuite(t *testing.T) *encryption.Suite {
	t.Helper()
	suiteOnce.Do(func() {
		var err error
		suite, err = encryption.NewSuite(encryption.DefaultSecrets())
		if err != nil {
			panic(err)
		}
	})
	return suite
}

var baseTime = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// op builds an operation context at baseTime plus an offset
func op(txID string, offset time.Duration) opctx.Context {
	return opctx.New(txID, baseTime.Add(offset))
}

func newTestEngine(t *testing.T) (*Engine, *ledger.Memory) {
	t.Helper()
	kv := ledger.NewMemory()
	engine := NewEngine(kv, sharedSuite(t), logger.New("error"), nil)
	require.NoError(t, engine.InitCatalogue(op("tx-init", 0)))
	return engine, kv
}

func TestInitCatalogueIdempotent(t *testing.T) {
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.InitCatalogue(op("tx-init-2", time.Minute)))

	levels, err := engine.GetPrivacyLevels()
	require.NoError(t, err)
	require.Len(t, levels, 4)
	for i, info := range levels {
		assert.Equal(t, i+1, info.Level)
	}
}

func TestAddRecordReturnsMetadataOnly(t *testing.T) {
	engine, _ := newTestEngine(t)

	meta, err := engine.AddRecord(op("tx-add", 0), "P1", "bloodType", "O+", types.LevelEmergency)
	require.NoError(t, err)

	assert.Equal(t, "P1", meta.PatientID)
	assert.Equal(t, "bloodType", meta.DataType)
	assert.Equal(t, types.LevelEmergency, meta.PrivacyLevel)
	assert.True(t, meta.IsEncrypted)
	assert.Equal(t, baseTime, meta.Timestamp)
}

func TestAddRecordInvalidLevelWritesNothing(t *testing.T) {
	for _, level := range []int{0, 5, -3} {
		engine, kv := newTestEngine(t)

		_, err := engine.AddRecord(op("tx-bad", 0), "P1", "bloodType", "O+", level)
		require.Error(t, err)
		assert.True(t, types.IsValidation(err))

		it := kv.ScanPrefix(ledger.CompositeKey(nsPatient, "P1"))
		assert.False(t, it.Next(), "rejected write must leave no partial state")
		it.Close()
	}
}

func TestAddRecordStoresNoPlaintext(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.AddRecord(op("tx-add", 0), "P1", "bloodType", "O+", types.LevelEmergency)
	require.NoError(t, err)

	record, err := engine.GetRecord("P1", "bloodType")
	require.NoError(t, err)
	assert.True(t, record.IsEncrypted)
	assert.NotEmpty(t, record.EncryptedData)
	assert.NotContains(t, record.EncryptedData, "O+")
}

func TestAddRecordOverwritesSameIdentity(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.AddRecord(op("tx-1", 0), "P1", "bloodType", "O+", types.LevelEmergency)
	require.NoError(t, err)
	_, err = engine.AddRecord(op("tx-2", time.Minute), "P1", "bloodType", "AB-", types.LevelEmergency)
	require.NoError(t, err)

	results, err := engine.QueryPatientData(op("tx-q", 2*time.Minute), "P1", "N1", "NURSE")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AB-", results[0].Data)
}

func TestGetRecordNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.GetRecord("P1", "missing")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}

func TestListRecordsOnePerDataType(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.AddRecord(op("tx-1", 0), "P1", "bloodType", "O+", 1)
	require.NoError(t, err)
	_, err = engine.AddRecord(op("tx-2", time.Second), "P1", "medications", "lisinopril", 2)
	require.NoError(t, err)
	_, err = engine.AddRecord(op("tx-3", 2*time.Second), "P2", "bloodType", "B+", 1)
	require.NoError(t, err)

	it := engine.ListRecords("P1")
	defer it.Close()

	dataTypes := make(map[string]bool)
	for it.Next() {
		dataTypes[it.Record().DataType] = true
	}
	require.NoError(t, it.Err())
	assert.Equal(t, map[string]bool{"bloodType": true, "medications": true}, dataTypes)
}

func TestGrantConsentRejectsBadExpiry(t *testing.T) {
	engine, kv := newTestEngine(t)

	for _, expiry := range []string{"", "not-a-date", "2024-13-45"} {
		_, err := engine.GrantConsent(op("tx-g", 0), "P1", "D1", "mentalHealth", expiry)
		require.Error(t, err, "expiry %q", expiry)
		assert.True(t, types.IsValidation(err))
	}

	it := kv.ScanPrefix(ledger.CompositeKey(nsConsent, "P1"))
	assert.False(t, it.Next())
	it.Close()
}

func TestGrantConsentOverwritesPriorGrant(t *testing.T) {
	engine, _ := newTestEngine(t)

	first, err := engine.GrantConsent(op("tx-1", 0), "P1", "D1", "mentalHealth",
		baseTime.Add(time.Hour).Format(time.RFC3339))
	require.NoError(t, err)

	second, err := engine.GrantConsent(op("tx-2", time.Minute), "P1", "D1", "mentalHealth",
		baseTime.Add(48*time.Hour).Format(time.RFC3339))
	require.NoError(t, err)

	assert.Equal(t, types.ConsentActive, second.Status)
	assert.True(t, second.ExpiryDate.After(first.ExpiryDate))
}

func TestRevokeConsent(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.RevokeConsent(op("tx-r", 0), "P1", "D1", "mentalHealth")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))

	_, err = engine.GrantConsent(op("tx-g", 0), "P1", "D1", "mentalHealth",
		baseTime.Add(24*time.Hour).Format(time.RFC3339))
	require.NoError(t, err)

	revoked, err := engine.RevokeConsent(op("tx-r2", time.Minute), "P1", "D1", "mentalHealth")
	require.NoError(t, err)
	assert.Equal(t, types.ConsentRevoked, revoked.Status)
}

func TestBreakGlassRequiresReason(t *testing.T) {
	engine, kv := newTestEngine(t)

	for _, reason := range []string{"", "   ", "\t"} {
		_, err := engine.BreakGlassAccess(op("tx-bg", 0), "ER1", "P1", reason)
		require.Error(t, err)
		assert.True(t, types.IsValidation(err))
	}

	it := kv.ScanPrefix(ledger.CompositeKey(nsEmergency))
	assert.False(t, it.Next())
	it.Close()
}

func TestBreakGlassExpiryIsOneHour(t *testing.T) {
	engine, _ := newTestEngine(t)

	event, err := engine.BreakGlassAccess(op("tx-bg", 0), "ER1", "P1", "unconscious")
	require.NoError(t, err)

	assert.Equal(t, types.EventBreakGlassAccess, event.EventType)
	require.NotNil(t, event.ExpiresAt)
	assert.Equal(t, int64(3600000), event.ExpiresAt.UnixMilli()-event.Timestamp.UnixMilli())
	assert.True(t, event.AccessGranted)
}

func TestHasEmergencyAccessWindow(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.BreakGlassAccess(op("tx-bg", 0), "ER1", "P1", "unconscious")
	require.NoError(t, err)

	active, err := engine.HasEmergencyAccess(op("tx-1", 30*time.Minute), "ER1", "P1")
	require.NoError(t, err)
	assert.True(t, active)

	expired, err := engine.HasEmergencyAccess(op("tx-2", time.Hour), "ER1", "P1")
	require.NoError(t, err)
	assert.False(t, expired, "grant expires exactly one hour after activation")

	other, err := engine.HasEmergencyAccess(op("tx-3", 30*time.Minute), "ER2", "P1")
	require.NoError(t, err)
	assert.False(t, other)
}

func TestBreakGlassOverwritesPriorGrant(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.BreakGlassAccess(op("tx-1", 0), "ER1", "P1", "first incident")
	require.NoError(t, err)
	_, err = engine.BreakGlassAccess(op("tx-2", 2*time.Hour), "ER1", "P1", "second incident")
	require.NoError(t, err)

	// The second activation refreshed the expiry.
	active, err := engine.HasEmergencyAccess(op("tx-3", 2*time.Hour+30*time.Minute), "ER1", "P1")
	require.NoError(t, err)
	assert.True(t, active)
}
