package bme280

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// TinyGoBus adapts a tinygo.org/x/drivers I²C bus to Bus so the driver can be
// used on microcontrollers.
//
// drivers.I2C.Tx must perform a write followed by a repeated-start read when
// both w and r are provided.
type TinyGoBus struct {
	i2c  drivers.I2C
	addr uint16
	w    [2]byte
}

// NewTinyGoBus returns a Bus talking to the device at addr on b.
func NewTinyGoBus(b drivers.I2C, addr uint16) *TinyGoBus {
	return &TinyGoBus{i2c: b, addr: addr}
}

func (t *TinyGoBus) String() string {
	return fmt.Sprintf("tinygo-i2c(0x%02X)", t.addr)
}

func (t *TinyGoBus) ReadReg(reg Register) (byte, error) {
	var r [1]byte
	if err := t.ReadBlock(reg, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (t *TinyGoBus) WriteReg(reg Register, v byte) error {
	t.w[0] = byte(reg)
	t.w[1] = v
	return t.i2c.Tx(t.addr, t.w[:2], nil)
}

func (t *TinyGoBus) ReadBlock(reg Register, b []byte) error {
	t.w[0] = byte(reg)
	return t.i2c.Tx(t.addr, t.w[:1], b)
}

var _ Bus = (*TinyGoBus)(nil)
