// Package idhash derives deterministic identifiers from record contents.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"energy-forecast-lab/internal/domain"
)

// ComputeRunID computes a deterministic dataset run_id.
// Formula: base58(SHA256(community_id|variant|mode|train_start|forecast_start|forecast_end|spec_fingerprint|fill_limit))
// Timestamps enter as Unix seconds, so the zone of the inputs does not matter.
func ComputeRunID(
	communityID int64,
	variant domain.Variant,
	mode domain.RunMode,
	trainStart time.Time,
	forecastStart time.Time,
	forecastEnd time.Time,
	specFingerprint string,
	fillLimit int,
) string {
	data := fmt.Sprintf("%d|%s|%s|%d|%d|%d|%s|%d",
		communityID,
		string(variant),
		string(mode),
		trainStart.Unix(),
		forecastStart.Unix(),
		forecastEnd.Unix(),
		specFingerprint,
		fillLimit,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// DecodeRunID returns the SHA256 digest behind a run_id.
func DecodeRunID(runID string) ([]byte, error) {
	digest, err := base58.Decode(runID)
	if err != nil {
		return nil, fmt.Errorf("decode run id: %w", err)
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("decode run id: digest is %d bytes, want %d", len(digest), sha256.Size)
	}
	return digest, nil
}
