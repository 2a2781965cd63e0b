package idhash

import (
	"crypto/sha256"
	"encoding/json"
	"sort"

	"github.com/mr-tron/base58"

	"ads-guardrail/internal/domain"
)

// fingerprintVersion is bumped whenever the canonical encoding changes.
const fingerprintVersion = 1

type canonicalInput struct {
	Version      int                    `json:"v"`
	WindowLabel  string                 `json:"windowLabel"`
	EndOfWindowB bool                   `json:"endOfWindowB"`
	Baseline     domain.BaselineMetrics `json:"baseline"`
	Config       domain.GuardrailConfig `json:"config"`
	Days         []domain.DailyMetrics  `json:"days"`
}

// ComputeInputFingerprint computes a deterministic fingerprint of an evaluation input.
// Formula: SHA256(canonical JSON with days sorted by date)
// Returns base58-encoded hash. Day order in the caller's slice does not matter.
func ComputeInputFingerprint(
	baseline domain.BaselineMetrics,
	cfg domain.GuardrailConfig,
	days []domain.DailyMetrics,
	endOfWindowB bool,
	windowLabel string,
) string {
	sorted := make([]domain.DailyMetrics, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	// Marshal cannot fail: every field is a plain value, pointer or slice of them.
	data, _ := json.Marshal(canonicalInput{
		Version:      fingerprintVersion,
		WindowLabel:  windowLabel,
		EndOfWindowB: endOfWindowB,
		Baseline:     baseline,
		Config:       cfg,
		Days:         sorted,
	})

	hash := sha256.Sum256(data)
	return base58.Encode(hash[:])
}

// DecodeFingerprint returns the raw 32-byte hash of a fingerprint.
func DecodeFingerprint(fp string) ([]byte, error) {
	return base58.Decode(fp)
}
