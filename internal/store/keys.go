package store

// Persisted state keys. These are a stable contract: the popup and
// dashboard surfaces read them independently, so renaming one is a
// breaking change.
const (
	KeyCollectCount          = "collectCount"
	KeyWoltCount             = "woltCount"
	KeyNotifiedCount         = "notifiedCount"
	KeyNotifiedWoltCount     = "notifiedWoltCount"
	KeyConsecutiveCollect    = "consecutiveCollectZeros"
	KeyConsecutiveWolt       = "consecutiveWoltZeros"
	KeyConnectionStatus      = "connectionStatus"
	KeyLastError             = "lastError"
	KeyLastCheck             = "lastCheck"
	KeyPendingOrders         = "pendingOrders"
	KeyOldestOrderTimestamp  = "oldestOrderTimestamp"
	KeyShiftHistory          = "shiftHistory"
	KeyPollIntervalSeconds   = "pollIntervalSeconds"
	KeyAlertDurationSeconds  = "alertDurationSeconds"
	KeySoundEnabled          = "soundEnabled"
	KeyCompletedStatuses     = "completedStatuses"
	KeyCollectKeywords       = "collectKeywords"
	KeyCollectCodes          = "collectCodes"
	KeyShippingKeywords      = "shippingKeywords"
	KeyWoltKeywords          = "woltKeywords"
	KeyWoltCodes             = "woltCodes"
	KeyConfigInitialized     = "configInitialized"
)

// Connection status values surfaced to the UI.
const (
	StatusUnknown   = "unknown"
	StatusConnected = "connected"
	StatusError     = "error"
)
