//go:build nocgo

package audio

// NewOtoDevice is unavailable in nocgo builds.
func NewOtoDevice() (Device, error) {
	return nil, ErrDeviceUnavailable
}
