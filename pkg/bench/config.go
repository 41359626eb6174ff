// Package bench locates and addresses the CI shield hardware: the
// fx2lafw-based logic analyzer and the CY7C65211 serial bridge that sit
// on every shield. A rig can have several shields attached; the serial
// number scheme tells them apart.
package bench

import "os"

// SerialEnvVar selects a specific shield when more than one is attached.
// When unset, the first shield found is used.
const SerialEnvVar = "OTB_SHIELD_SERIAL"

// Serial number prefixes programmed into the shield's two USB devices.
const (
	bridgeSerialPrefix   = "Shield"
	analyzerSerialPrefix = "OTB FX2LAFW "
)

// Config identifies which shield to talk to.
type Config struct {
	// SerialNumber is the shield serial (e.g. "SN002"), or empty to use
	// any attached shield.
	SerialNumber string
}

// ConfigFromEnv reads the shield selection from the environment.
func ConfigFromEnv() Config {
	return Config{SerialNumber: os.Getenv(SerialEnvVar)}
}

// BridgeSerial derives the USB serial string of the shield's CY7C65211
// bridge. Empty when no specific shield is selected.
func (c Config) BridgeSerial() string {
	if c.SerialNumber == "" {
		return ""
	}
	return bridgeSerialPrefix + c.SerialNumber
}

// AnalyzerSerial derives the USB serial string of the shield's logic
// analyzer. Empty when no specific shield is selected.
func (c Config) AnalyzerSerial() string {
	if c.SerialNumber == "" {
		return ""
	}
	return analyzerSerialPrefix + c.SerialNumber
}
