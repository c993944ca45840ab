// Package aht20 drives the AHT20 temperature/humidity sensor with a
// two-phase measurement: Trigger starts a conversion and Collect fetches it
// once the chip is idle (about 80 ms later).
//
// I2C.Tx must perform a write followed by a repeated-start read when both w
// and r are provided.
package aht20

import (
	"errors"

	"tinygo.org/x/drivers"
)

const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

var ErrNotReady = errors.New("aht20: not ready")

type Device struct {
	bus     drivers.I2C
	Address uint16

	buf      [7]byte
	humidity uint32
	temp     uint32
}

// New only builds the Device; the bus must already be configured.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Probe reports whether the chip answers a status read.
func (d *Device) Probe() bool {
	_, err := d.Status()
	return err == nil
}

// Configure calibrates the chip unless it reports calibrated already.
func (d *Device) Configure() error {
	st, err := d.Status()
	if err == nil && st&statusCalibrated != 0 {
		return nil
	}
	return d.bus.Tx(d.Address, []byte{cmdInitialize, 0x08, 0x00}, nil)
}

func (d *Device) Status() (byte, error) {
	data := []byte{0}
	if err := d.bus.Tx(d.Address, []byte{cmdStatus}, data); err != nil {
		return 0, err
	}
	return data[0], nil
}

// Trigger starts a conversion without waiting for it.
func (d *Device) Trigger() error {
	return d.bus.Tx(d.Address, []byte{cmdTrigger, 0x33, 0x00}, nil)
}

// Collect reads the last conversion. ErrNotReady means the chip is still
// busy or uncalibrated; bus errors are returned as-is.
func (d *Device) Collect() error {
	data := d.buf[:]
	if err := d.bus.Tx(d.Address, nil, data); err != nil {
		return err
	}
	if data[0]&statusCalibrated == 0 || data[0]&statusBusy != 0 {
		return ErrNotReady
	}
	d.humidity = uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4
	d.temp = uint32(data[3]&0x0F)<<16 | uint32(data[4])<<8 | uint32(data[5])
	return nil
}

// RelHumidity is the last humidity in percent.
func (d *Device) RelHumidity() float64 {
	return float64(d.humidity) * 100 / 0x100000
}

// Celsius is the last temperature.
func (d *Device) Celsius() float64 {
	return float64(d.temp)*200/0x100000 - 50
}
