package bench

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// USB identifiers of the shield's two devices.
const (
	// fx2lafw firmware running on the analyzer's FX2 (OpenMoko ID space).
	VendorIDAnalyzer  = 0x1D50
	ProductIDAnalyzer = 0x608C

	// Cypress CY7C65211 USB-serial bridge.
	VendorIDBridge  = 0x04B4
	ProductIDBridge = 0x0004
)

// DeviceKind categorizes shield USB functions.
type DeviceKind string

const (
	DeviceKindAnalyzer DeviceKind = "logic-analyzer"
	DeviceKindBridge   DeviceKind = "serial-bridge"
)

// DeviceInfo describes one detected shield device.
type DeviceInfo struct {
	Kind        DeviceKind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Bus         int
	Address     int
}

// Label returns a user-friendly description for the device.
func (d DeviceInfo) Label() string {
	if d.Serial != "" {
		return fmt.Sprintf("%s %q (%04X:%04X bus %d addr %d)", d.Kind, d.Serial, d.VendorID, d.ProductID, d.Bus, d.Address)
	}
	return fmt.Sprintf("%s (%04X:%04X bus %d addr %d)", d.Kind, d.VendorID, d.ProductID, d.Bus, d.Address)
}

type knownUSBDevice struct {
	Kind        DeviceKind
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownShieldVIDPIDs = []knownUSBDevice{
	{Kind: DeviceKindAnalyzer, VendorID: VendorIDAnalyzer, ProductID: ProductIDAnalyzer, Description: "fx2lafw logic analyzer"},
	{Kind: DeviceKindBridge, VendorID: VendorIDBridge, ProductID: ProductIDBridge, Description: "CY7C65211 serial bridge"},
}

// ClassifyVIDPID matches a vendor/product pair against the shield's
// known device table.
func ClassifyVIDPID(vid, pid uint16) (DeviceInfo, bool) {
	for _, known := range knownShieldVIDPIDs {
		if vid == known.VendorID && pid == known.ProductID {
			return DeviceInfo{
				Kind:        known.Kind,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
			}, true
		}
	}
	return DeviceInfo{}, false
}

// matchesConfig reports whether a device's serial belongs to the
// configured shield. With no shield selected, every shield device
// matches.
func matchesConfig(cfg Config, info DeviceInfo) bool {
	switch info.Kind {
	case DeviceKindAnalyzer:
		return cfg.AnalyzerSerial() == "" || info.Serial == cfg.AnalyzerSerial()
	case DeviceKindBridge:
		return cfg.BridgeSerial() == "" || info.Serial == cfg.BridgeSerial()
	}
	return false
}

// DiscoverShields enumerates attached shield devices, reading serial
// strings so individual shields can be told apart. Devices whose serial
// does not belong to the configured shield are filtered out.
func DiscoverShields(ctx context.Context, cfg Config) ([]DeviceInfo, error) {
	usb := gousb.NewContext()
	defer usb.Close()
	return discoverShields(ctx, usb, cfg)
}

func discoverShields(ctx context.Context, usb *gousb.Context, cfg Config) ([]DeviceInfo, error) {
	var results []DeviceInfo

	devices, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		_, ok := ClassifyVIDPID(uint16(desc.Vendor), uint16(desc.Product))
		return ok
	})
	for _, dev := range devices {
		info, _ := ClassifyVIDPID(uint16(dev.Desc.Vendor), uint16(dev.Desc.Product))
		info.Bus = dev.Desc.Bus
		info.Address = dev.Desc.Address
		if serial, serr := dev.SerialNumber(); serr == nil {
			info.Serial = serial
		}
		if matchesConfig(cfg, info) {
			results = append(results, info)
		}
		dev.Close()
	}
	if err != nil && err != gousb.ErrorAccess {
		return results, fmt.Errorf("bench: enumerating USB devices: %w", err)
	}
	return results, nil
}

// AnalyzerConn resolves the configured shield's analyzer to a sigrok
// connection clause of the form "<bus>.<address>", so the capture tool
// can be pinned to one shield when several are attached.
func AnalyzerConn(ctx context.Context, cfg Config) (string, error) {
	devices, err := DiscoverShields(ctx, cfg)
	if err != nil {
		return "", err
	}
	for _, dev := range devices {
		if dev.Kind == DeviceKindAnalyzer {
			return fmt.Sprintf("%d.%d", dev.Bus, dev.Address), nil
		}
	}
	if cfg.SerialNumber != "" {
		return "", fmt.Errorf("bench: no logic analyzer found for shield %q", cfg.SerialNumber)
	}
	return "", fmt.Errorf("bench: no logic analyzer found")
}
