package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position_id using SHA256.
// Formula: SHA256(strategy_id|signal_id|entry_time_ms)
// Returns hex-encoded hash (64 characters).
func ComputePositionID(strategyID, signalID string, entryTimeMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", strategyID, signalID, entryTimeMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(strategy_id|contract_address|entry_time_ms)
// Returns hex-encoded hash (64 characters).
func ComputeSignalID(strategyID, contractAddress string, entryTimeMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", strategyID, contractAddress, entryTimeMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
