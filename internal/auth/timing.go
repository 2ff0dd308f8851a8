package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig controls the login-path timing equalization.
type TimingConfig struct {
	BaseDelay      time.Duration // minimum elapsed time for a failed login
	Jitter         time.Duration // random extra delay added on top of the base
	DelayOnSuccess bool          // equalize successful logins too
}

// TimingDelay pads failed logins to a minimum elapsed time. Without it the
// unknown-email branch returns before any password work, so response
// latency would reveal which addresses have accounts even though the 401
// body is identical.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay.
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// WaitFrom sleeps until at least base+jitter has elapsed since start.
// Successful logins pass through undelayed unless DelayOnSuccess is set.
func (td *TimingDelay) WaitFrom(start time.Time, succeeded bool) {
	if succeeded && !td.config.DelayOnSuccess {
		return
	}

	target := td.config.BaseDelay + randomJitter(td.config.Jitter)
	if elapsed := time.Since(start); elapsed < target {
		time.Sleep(target - elapsed)
	}
}

// randomJitter draws from crypto/rand; a delay an attacker could predict
// from a seedable generator would subtract cleanly out of measurements.
func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(buf[:]) % uint64(max))
}
