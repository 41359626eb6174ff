package bench

import "testing"

func TestSerialDerivation(t *testing.T) {
	cfg := Config{SerialNumber: "SN002"}

	if got, want := cfg.BridgeSerial(), "ShieldSN002"; got != want {
		t.Errorf("BridgeSerial = %q, want %q", got, want)
	}
	if got, want := cfg.AnalyzerSerial(), "OTB FX2LAFW SN002"; got != want {
		t.Errorf("AnalyzerSerial = %q, want %q", got, want)
	}
}

func TestSerialDerivationAnyShield(t *testing.T) {
	cfg := Config{}
	if cfg.BridgeSerial() != "" || cfg.AnalyzerSerial() != "" {
		t.Error("unselected shield must derive empty serials")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(SerialEnvVar, "SN007")
	if got := ConfigFromEnv().SerialNumber; got != "SN007" {
		t.Errorf("SerialNumber = %q, want SN007", got)
	}
}

func TestClassifyVIDPID(t *testing.T) {
	tests := []struct {
		vid, pid uint16
		kind     DeviceKind
		ok       bool
	}{
		{VendorIDAnalyzer, ProductIDAnalyzer, DeviceKindAnalyzer, true},
		{VendorIDBridge, ProductIDBridge, DeviceKindBridge, true},
		{0x0d28, 0x0204, "", false},
		{VendorIDAnalyzer, ProductIDBridge, "", false},
	}

	for _, tt := range tests {
		info, ok := ClassifyVIDPID(tt.vid, tt.pid)
		if ok != tt.ok {
			t.Errorf("ClassifyVIDPID(%04X, %04X) ok = %v, want %v", tt.vid, tt.pid, ok, tt.ok)
			continue
		}
		if ok && info.Kind != tt.kind {
			t.Errorf("ClassifyVIDPID(%04X, %04X) kind = %v, want %v", tt.vid, tt.pid, info.Kind, tt.kind)
		}
	}
}

func TestMatchesConfig(t *testing.T) {
	cfg := Config{SerialNumber: "SN002"}

	tests := []struct {
		info DeviceInfo
		want bool
	}{
		{DeviceInfo{Kind: DeviceKindBridge, Serial: "ShieldSN002"}, true},
		{DeviceInfo{Kind: DeviceKindBridge, Serial: "ShieldSN003"}, false},
		{DeviceInfo{Kind: DeviceKindAnalyzer, Serial: "OTB FX2LAFW SN002"}, true},
		{DeviceInfo{Kind: DeviceKindAnalyzer, Serial: "OTB FX2LAFW SN001"}, false},
		{DeviceInfo{Kind: "other", Serial: "whatever"}, false},
	}
	for _, tt := range tests {
		if got := matchesConfig(cfg, tt.info); got != tt.want {
			t.Errorf("matchesConfig(%+v) = %v, want %v", tt.info, got, tt.want)
		}
	}

	// Any-shield config accepts every shield device.
	any := Config{}
	if !matchesConfig(any, DeviceInfo{Kind: DeviceKindBridge, Serial: "ShieldSN009"}) {
		t.Error("any-shield config must match every bridge")
	}
}
