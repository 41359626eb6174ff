package bridge

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bench"
)

// Bridge is an open CY7C65211 in I2C or SPI controller mode. One bridge
// handle belongs to one goroutine.
type Bridge struct {
	t transport
}

// Open claims the configured shield's bridge chip.
func Open(cfg bench.Config) (*Bridge, error) {
	t, err := openUSBTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &Bridge{t: t}, nil
}

// Close releases the USB interface and device.
func (b *Bridge) Close() error {
	if b.t == nil {
		return nil
	}
	err := b.t.close()
	b.t = nil
	return err
}

// FirmwareVersion reads the chip's firmware version.
func (b *Bridge) FirmwareVersion() (string, error) {
	buf, err := b.t.controlIn(setupPacket{Request: reqGetVersion}, 4)
	if err != nil {
		return "", err
	}
	return decodeVersion(buf)
}

// ConfigureI2C puts the serial block into I2C controller mode with the
// given bus settings.
func (b *Bridge) ConfigureI2C(cfg I2CConfig) error {
	return b.t.controlOut(setupPacket{Request: reqSetI2CConfig}, cfg.encode())
}

// I2CConfig reads back the current I2C block configuration.
func (b *Bridge) I2CConfig() (I2CConfig, error) {
	buf, err := b.t.controlIn(setupPacket{Request: reqGetI2CConfig}, i2cConfigLen)
	if err != nil {
		return I2CConfig{}, err
	}
	return decodeI2CConfig(buf)
}

// I2CWrite writes data to the 7-bit address. start and stop control
// whether the transfer begins with a start condition and ends with a
// stop, so multi-part transfers can use repeated starts.
func (b *Bridge) I2CWrite(addr uint8, data []byte, start, stop bool) error {
	setup := i2cTransferSetup(reqI2CWrite, addr, start, stop, len(data))
	if err := b.t.controlOut(setup, nil); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return b.t.bulkWrite(data)
}

// I2CRead reads n bytes from the 7-bit address.
func (b *Bridge) I2CRead(addr uint8, n int, start, stop bool) ([]byte, error) {
	setup := i2cTransferSetup(reqI2CRead, addr, start, stop, n)
	if err := b.t.controlOut(setup, nil); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	data, err := b.t.bulkRead(n)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return data, fmt.Errorf("bridge: short i2c read (%d of %d bytes)", len(data), n)
	}
	return data, nil
}

// I2CReset clears the I2C block after a failed transfer.
func (b *Bridge) I2CReset() error {
	return b.t.controlOut(setupPacket{Request: reqI2CReset}, nil)
}

// ConfigureSPI puts the serial block into SPI controller mode. Mode and
// clock may be changed between transfers; the slave-comms suites do so
// at runtime.
func (b *Bridge) ConfigureSPI(cfg SPIConfig) error {
	buf, err := cfg.encode()
	if err != nil {
		return err
	}
	return b.t.controlOut(setupPacket{Request: reqSetSPIConfig}, buf)
}

// SPIConfig reads back the current SPI block configuration.
func (b *Bridge) SPIConfig() (SPIConfig, error) {
	buf, err := b.t.controlIn(setupPacket{Request: reqGetSPIConfig}, spiConfigLen)
	if err != nil {
		return SPIConfig{}, err
	}
	return decodeSPIConfig(buf)
}

// SPITransfer shifts mosi out and returns the bytes shifted in on MISO.
// SPI is full duplex, so the result always has len(mosi) bytes.
func (b *Bridge) SPITransfer(mosi []byte) ([]byte, error) {
	if len(mosi) == 0 {
		return nil, nil
	}
	if err := b.t.controlOut(spiTransferSetup(len(mosi)), nil); err != nil {
		return nil, err
	}
	if err := b.t.bulkWrite(mosi); err != nil {
		return nil, err
	}
	miso, err := b.t.bulkRead(len(mosi))
	if err != nil {
		return nil, err
	}
	if len(miso) != len(mosi) {
		return miso, fmt.Errorf("bridge: short spi transfer (%d of %d bytes)", len(miso), len(mosi))
	}
	return miso, nil
}
