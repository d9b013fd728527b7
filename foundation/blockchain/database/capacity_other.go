//go:build !linux && !darwin

package database

import "math"

// freeBytes reports unlimited space where the volume can't be probed. Only
// the configured store size limit applies on these platforms.
func freeBytes(path string) (uint64, error) {
	return math.MaxUint64, nil
}
