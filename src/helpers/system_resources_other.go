//go:build !linux && !darwin && !windows

package helpers

func totalSystemMemoryBytes() uint64 {
	return 0
}
