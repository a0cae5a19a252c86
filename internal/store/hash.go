package store

import (
	"fmt"

	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("ecoscope-dataset-fingerprint-key")

// Fingerprint returns the HighwayHash-64 of data as 16 lowercase hex digits.
// Identical document bytes always produce the same fingerprint.
func Fingerprint(data []byte) (string, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	if _, err := h.Write(data); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
