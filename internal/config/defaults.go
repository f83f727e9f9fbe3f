package config

import "time"

// Centralized default values for configuration

const (
	DefaultRuntimePackage    = "com.google.ar.core"
	DefaultMinRuntimeVersion = "1.41.0"
	DefaultMinAPILevel       = 24

	DefaultProviderType      = ProviderADB
	DefaultADBPath           = "adb"
	DefaultProfilePath       = "device.yaml"
	DefaultPropertyCacheTTL  = 10 * time.Minute
	DefaultCommandsPerSecond = 5
	DefaultLogLevel          = "info"
	DefaultConfigFileName    = "arprov.yaml"
	EnvPrefix                = "ARPROV"
)

// DefaultSupportedABIs returns a fresh copy of the default ABI list.
func DefaultSupportedABIs() []string {
	return []string{"arm64-v8a", "armeabi-v7a"}
}
