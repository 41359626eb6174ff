package bridge

import (
	"fmt"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bench"
)

// transport is the USB capability a Bridge talks through. The real
// implementation claims the chip's vendor interface; tests substitute a
// scripted fake.
type transport interface {
	controlIn(setup setupPacket, n int) ([]byte, error)
	controlOut(setup setupPacket, data []byte) error
	bulkWrite(data []byte) error
	bulkRead(n int) ([]byte, error)
	close() error
}

// usbTransport is the gousb-backed transport.
type usbTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint
}

// openUSBTransport finds the configured shield's bridge by VID/PID plus
// serial filter and claims its vendor interface.
func openUSBTransport(cfg bench.Config) (*usbTransport, error) {
	ctx := gousb.NewContext()

	wantSerial := cfg.BridgeSerial()
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return uint16(desc.Vendor) == bench.VendorIDBridge && uint16(desc.Product) == bench.ProductIDBridge
	})
	if err != nil && err != gousb.ErrorAccess {
		for _, dev := range devices {
			dev.Close()
		}
		ctx.Close()
		return nil, fmt.Errorf("bridge: enumerating USB devices: %w", err)
	}

	var picked *gousb.Device
	for _, dev := range devices {
		if picked == nil {
			if wantSerial == "" {
				picked = dev
				continue
			}
			if serial, serr := dev.SerialNumber(); serr == nil && serial == wantSerial {
				picked = dev
				continue
			}
		}
		dev.Close()
	}
	if picked == nil {
		ctx.Close()
		if wantSerial != "" {
			return nil, fmt.Errorf("bridge: no CY7C65211 with serial %q found", wantSerial)
		}
		return nil, fmt.Errorf("bridge: no CY7C65211 found")
	}

	if err := picked.SetAutoDetach(true); err != nil {
		// Not fatal on all platforms; the claim below will tell.
		_ = err
	}

	t := &usbTransport{ctx: ctx, dev: picked}
	if err := t.claimInterface(); err != nil {
		picked.Close()
		ctx.Close()
		return nil, err
	}
	return t, nil
}

// claimInterface claims the chip's vendor-class interface and resolves
// its bulk endpoints.
func (t *usbTransport) claimInterface() error {
	cfg, err := t.dev.Config(1)
	if err != nil {
		return fmt.Errorf("bridge: getting config: %w", err)
	}

	vendorIntfNum := -1
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 && intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			vendorIntfNum = intf.Number
			break
		}
	}
	if vendorIntfNum == -1 {
		vendorIntfNum = 0
	}

	intf, err := cfg.Interface(vendorIntfNum, 0)
	if err != nil {
		return fmt.Errorf("bridge: claiming interface %d: %w", vendorIntfNum, err)
	}
	t.intf = intf

	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			if t.epOut == nil {
				t.epOut, err = intf.OutEndpoint(ep.Number)
			}
		case gousb.EndpointDirectionIn:
			if t.epIn == nil {
				t.epIn, err = intf.InEndpoint(ep.Number)
			}
		}
		if err != nil {
			intf.Close()
			return fmt.Errorf("bridge: opening endpoint %d: %w", ep.Number, err)
		}
	}
	if t.epOut == nil || t.epIn == nil {
		intf.Close()
		return fmt.Errorf("bridge: bulk endpoints not found")
	}
	return nil
}

func (t *usbTransport) controlIn(setup setupPacket, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := t.dev.Control(
		gousb.ControlVendor|gousb.ControlDevice|gousb.ControlIn,
		setup.Request, setup.Value, setup.Index, buf)
	if err != nil {
		return nil, fmt.Errorf("bridge: control request 0x%02X: %w", setup.Request, err)
	}
	return buf[:got], nil
}

func (t *usbTransport) controlOut(setup setupPacket, data []byte) error {
	_, err := t.dev.Control(
		gousb.ControlVendor|gousb.ControlDevice|gousb.ControlOut,
		setup.Request, setup.Value, setup.Index, data)
	if err != nil {
		return fmt.Errorf("bridge: control request 0x%02X: %w", setup.Request, err)
	}
	return nil
}

func (t *usbTransport) bulkWrite(data []byte) error {
	n, err := t.epOut.Write(data)
	if err != nil {
		return fmt.Errorf("bridge: bulk write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("bridge: short bulk write (%d of %d bytes)", n, len(data))
	}
	return nil
}

func (t *usbTransport) bulkRead(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := t.epIn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("bridge: bulk read: %w", err)
	}
	return buf[:got], nil
}

// close releases resources in reverse order of acquisition.
func (t *usbTransport) close() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	var err error
	if t.dev != nil {
		err = t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		if cerr := t.ctx.Close(); err == nil {
			err = cerr
		}
		t.ctx = nil
	}
	return err
}
