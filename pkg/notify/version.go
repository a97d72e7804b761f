package notify

// Version information for the notify module.
const (
	// Version is the current version of the notify module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)
