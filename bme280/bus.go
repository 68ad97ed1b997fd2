package bme280

import (
	"fmt"

	"periph.io/x/conn/v3"
)

// Bus is the register level capability the driver needs from a transport.
//
// Implementations are not expected to be safe for concurrent use; the driver
// assumes exclusive ownership of the bus for as long as it holds it.
type Bus interface {
	// ReadReg reads a single byte at reg.
	ReadReg(reg Register) (byte, error)
	// WriteReg writes v at reg.
	WriteReg(reg Register, v byte) error
	// ReadBlock reads len(b) consecutive bytes starting at reg.
	ReadBlock(reg Register, b []byte) error
}

// BusError is returned when a bus transaction fails. It is the only error
// kind produced by the register level functions of this package.
type BusError struct {
	Op  string // "read" or "write"
	Reg Register
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

func readErr(reg Register, err error) error {
	return &BusError{Op: "read", Reg: reg, Err: err}
}

func writeErr(reg Register, err error) error {
	return &BusError{Op: "write", Reg: reg, Err: err}
}

// connBus implements Bus on top of a periph connection, either an i2c.Dev or
// an SPI connection.
type connBus struct {
	c     conn.Conn
	isSPI bool
}

func (b *connBus) String() string {
	return b.c.String()
}

func (b *connBus) ReadReg(reg Register) (byte, error) {
	var v [1]byte
	if err := b.ReadBlock(reg, v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

func (b *connBus) ReadBlock(reg Register, p []byte) error {
	if b.isSPI {
		// MSB is 0 for write and 1 for read; every readable register already
		// has it set.
		read := make([]byte, len(p)+1)
		write := make([]byte, len(read))
		// Rest of the write buffer is ignored.
		write[0] = byte(reg) | 0x80
		if err := b.c.Tx(write, read); err != nil {
			return err
		}
		copy(p, read[1:])
		return nil
	}
	return b.c.Tx([]byte{byte(reg)}, p)
}

func (b *connBus) WriteReg(reg Register, v byte) error {
	w := []byte{byte(reg), v}
	if b.isSPI {
		// set RW bit 7 to 0.
		w[0] &^= 0x80
	}
	return b.c.Tx(w, nil)
}
