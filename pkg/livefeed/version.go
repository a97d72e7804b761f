package livefeed

import (
	"github.com/bft-labs/livefeed/pkg/audio"
	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/log"
	"github.com/bft-labs/livefeed/pkg/mapper"
	"github.com/bft-labs/livefeed/pkg/notify"
)

// Version information for the livefeed facade.
const (
	// Version is the current version of the livefeed module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

// ModuleVersions returns the versions of all sub-modules.
func ModuleVersions() map[string]string {
	return map[string]string{
		"livefeed":   Version,
		"connection": connection.Version,
		"mapper":     mapper.Version,
		"notify":     notify.Version,
		"audio":      audio.Version,
		"log":        log.Version,
	}
}

// CompatibilityMatrix returns the minimum compatible version of each sub-module.
func CompatibilityMatrix() map[string]string {
	return map[string]string{
		"livefeed":   MinCompatibleVersion,
		"connection": connection.MinCompatibleVersion,
		"mapper":     mapper.MinCompatibleVersion,
		"notify":     notify.MinCompatibleVersion,
		"audio":      audio.MinCompatibleVersion,
		"log":        log.MinCompatibleVersion,
	}
}
