// Package bridge drives the shield's CY7C65211 USB serial bridge, which
// fronts the DUT-facing I2C/SPI/UART traffic. The vendor protocol is a
// set of control requests carrying small config blocks plus bulk
// endpoints for data; the codec here is pure so it can be tested against
// golden byte vectors without hardware.
package bridge

import (
	"encoding/binary"
	"fmt"
)

// Vendor control request codes.
const (
	reqGetVersion uint8 = 0xB0

	reqGetSPIConfig uint8 = 0xC1
	reqSetSPIConfig uint8 = 0xC2
	reqSPITransfer  uint8 = 0xC3

	reqGetI2CConfig uint8 = 0xC4
	reqSetI2CConfig uint8 = 0xC5
	reqI2CWrite     uint8 = 0xC6
	reqI2CRead      uint8 = 0xC7
	reqI2CReset     uint8 = 0xC8
)

// SCBMode selects the serial block's operating mode. Switching modes
// re-enumerates the chip, so tests reconfigure it at runtime.
type SCBMode uint8

const (
	ModeUARTCDC SCBMode = iota
	ModeI2CController
	ModeSPIController
)

var scbModeNames = map[SCBMode]string{
	ModeUARTCDC:       "UART_CDC",
	ModeI2CController: "I2C_CONTROLLER",
	ModeSPIController: "SPI_CONTROLLER",
}

func (m SCBMode) String() string {
	if name, ok := scbModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("SCBMode(%d)", uint8(m))
}

// setupPacket is the header of one vendor control request.
type setupPacket struct {
	Request uint8
	Value   uint16
	Index   uint16
}

// I2C transfer flag bits packed into wValue next to the address.
const (
	i2cFlagStart uint16 = 1 << 0
	i2cFlagStop  uint16 = 1 << 1
)

// i2cTransferSetup encodes the setup of an I2C read or write: the 7-bit
// address and the start/stop flags go in wValue, the byte count in
// wIndex.
func i2cTransferSetup(req uint8, addr uint8, start, stop bool, n int) setupPacket {
	value := uint16(addr) << 8
	if start {
		value |= i2cFlagStart
	}
	if stop {
		value |= i2cFlagStop
	}
	return setupPacket{Request: req, Value: value, Index: uint16(n)}
}

func spiTransferSetup(n int) setupPacket {
	return setupPacket{Request: reqSPITransfer, Index: uint16(n)}
}

// I2CConfig is the bridge's I2C block configuration.
type I2CConfig struct {
	// FrequencyHz is the SCL frequency, 1 kHz to 400 kHz.
	FrequencyHz uint32
}

const i2cConfigLen = 8

func (c I2CConfig) encode() []byte {
	buf := make([]byte, i2cConfigLen)
	binary.LittleEndian.PutUint32(buf[0:4], c.FrequencyHz)
	buf[4] = uint8(ModeI2CController)
	return buf
}

func decodeI2CConfig(buf []byte) (I2CConfig, error) {
	if len(buf) < i2cConfigLen {
		return I2CConfig{}, fmt.Errorf("bridge: i2c config block too short (%d bytes)", len(buf))
	}
	return I2CConfig{FrequencyHz: binary.LittleEndian.Uint32(buf[0:4])}, nil
}

// SPIConfig is the bridge's SPI block configuration.
type SPIConfig struct {
	// FrequencyHz is the SCLK frequency.
	FrequencyHz uint32

	// Mode is the SPI mode 0-3 (CPOL in bit 1, CPHA in bit 0).
	Mode uint8

	// WordSize in bits; the rig uses 8.
	WordSize uint8
}

const spiConfigLen = 8

func (c SPIConfig) encode() ([]byte, error) {
	if c.Mode > 3 {
		return nil, fmt.Errorf("bridge: invalid SPI mode %d", c.Mode)
	}
	if c.WordSize == 0 || c.WordSize > 16 {
		return nil, fmt.Errorf("bridge: invalid SPI word size %d", c.WordSize)
	}
	buf := make([]byte, spiConfigLen)
	binary.LittleEndian.PutUint32(buf[0:4], c.FrequencyHz)
	buf[4] = uint8(ModeSPIController)
	buf[5] = c.Mode
	buf[6] = c.WordSize
	return buf, nil
}

func decodeSPIConfig(buf []byte) (SPIConfig, error) {
	if len(buf) < spiConfigLen {
		return SPIConfig{}, fmt.Errorf("bridge: spi config block too short (%d bytes)", len(buf))
	}
	cfg := SPIConfig{
		FrequencyHz: binary.LittleEndian.Uint32(buf[0:4]),
		Mode:        buf[5],
		WordSize:    buf[6],
	}
	if cfg.Mode > 3 {
		return SPIConfig{}, fmt.Errorf("bridge: invalid SPI mode %d in config block", cfg.Mode)
	}
	return cfg, nil
}

// decodeVersion renders the 4-byte firmware version response.
func decodeVersion(buf []byte) (string, error) {
	if len(buf) < 4 {
		return "", fmt.Errorf("bridge: version response too short (%d bytes)", len(buf))
	}
	return fmt.Sprintf("%d.%d.%d.%d", buf[0], buf[1], buf[2], buf[3]), nil
}
