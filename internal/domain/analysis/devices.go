package analysis

import (
	"fmt"
	"time"

	"github.com/studykit/session-integrity/internal/domain"
)

// DeviceAnalyzer detects excessive distinct devices and rapid device
// switching within a short window.
type DeviceAnalyzer struct{}

// NewDeviceAnalyzer creates a new device consistency analyzer
func NewDeviceAnalyzer() *DeviceAnalyzer {
	return &DeviceAnalyzer{}
}

// Name returns the analyzer name
func (a *DeviceAnalyzer) Name() string {
	return "Device Consistency"
}

// rapidSwitchMinSessions is the minimum number of recent sessions before
// the switching check is meaningful; fewer sightings cannot distinguish
// switching from ordinary multi-device use.
const rapidSwitchMinSessions = 6

// Analyze inspects the 7-day device sighting history. The candidate's
// SubmittedAt anchors the 24h switching window so results are
// deterministic for a given input.
func (a *DeviceAnalyzer) Analyze(c domain.SessionCandidate, actx *Context) []domain.RiskFlag {
	if len(actx.Devices) == 0 {
		return nil
	}

	t := actx.Thresholds
	flags := make([]domain.RiskFlag, 0)

	distinct := make(map[string]struct{})
	for _, ev := range actx.Devices {
		distinct[ev.Fingerprint] = struct{}{}
	}
	if len(distinct) > t.MaxDevicesPerWeek {
		flags = append(flags, domain.RiskFlag{
			Code:     domain.FlagMultipleDevices,
			Message:  fmt.Sprintf("multiple devices detected: %d distinct fingerprints in 7 days", len(distinct)),
			Severity: domain.SeverityMedium,
		})
	}

	// Rapid switching: look at the most recent 10 sightings inside 24h
	dayAgo := c.SubmittedAt.Add(-24 * time.Hour)
	recent := make(map[string]struct{})
	count := 0
	for _, ev := range actx.Devices { // ordered most recent first
		if ev.SeenAt.Before(dayAgo) {
			continue
		}
		count++
		recent[ev.Fingerprint] = struct{}{}
		if count == 10 {
			break
		}
	}
	if count >= rapidSwitchMinSessions && len(recent) > t.MaxDevicesPerDay {
		flags = append(flags, domain.RiskFlag{
			Code:     domain.FlagRapidDeviceSwitching,
			Message:  fmt.Sprintf("rapid device switching: %d devices across %d recent sessions", len(recent), count),
			Severity: domain.SeverityHigh,
		})
	}

	return flags
}
