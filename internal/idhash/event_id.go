package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(position_id|event_type|seq|timestamp_ms)
// Returns hex-encoded hash (64 characters).
func ComputeEventID(positionID, eventType string, seq int64, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%d|%d", positionID, eventType, seq, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRunID computes a deterministic run_id from the run inputs.
// Formula: SHA256(strategy_id|profile_id|sorted signal_ids joined by ",")
// The signal set is sorted so the id does not depend on input order.
func ComputeRunID(strategyID, profileID string, signalIDs []string) string {
	sorted := make([]string, len(signalIDs))
	copy(sorted, signalIDs)
	sort.Strings(sorted)

	data := fmt.Sprintf("%s|%s|%s", strategyID, profileID, strings.Join(sorted, ","))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
