package bme280

import (
	"errors"
	"time"
)

func init() {
	doSleep = func(time.Duration) {}
}

var errFakeBus = errors.New("fake bus: nack")

type regWrite struct {
	reg Register
	v   byte
}

// fakeBus is an in-memory register map. Writes are recorded and, except for
// the reset register, stored.
type fakeBus struct {
	regs   [256]byte
	reads  []Register
	writes []regWrite
	// failRead makes the n-th ReadReg call (1 based) fail; 0 disables it.
	failRead int
	// failWrite makes every write to this register fail when set.
	failWrite    Register
	hasFailWrite bool
	nReads       int
}

// coeffs are the integer calibration values as stored in NVM.
type coeffs struct {
	t1     uint16
	t2, t3 int16
	p1     uint16
	p2, p3 int16
	p4, p5 int16
	p6, p7 int16
	p8, p9 int16
	h1     uint8
	h2     int16
	h3     uint8
	h4, h5 int16
	h6     int8
}

// datasheetCoeffs are the example values of the BMP280 datasheet, completed
// with typical humidity values.
var datasheetCoeffs = coeffs{
	t1: 27504, t2: 26435, t3: -1000,
	p1: 36477, p2: -10685, p3: 3024, p4: 2855, p5: 140, p6: -7, p7: 15500, p8: -14600, p9: 6000,
	h1: 75, h2: 362, h3: 0, h4: 324, h5: 0, h6: 30,
}

// datasheetRaw is the matching raw sample.
var datasheetRaw = RawTriplet{Temperature: 519888, Pressure: 415148, Humidity: 23573}

func (c coeffs) encode() [calibrationSize]byte {
	var b [calibrationSize]byte
	put := func(i int, v uint16) {
		b[i] = byte(v)
		b[i+1] = byte(v >> 8)
	}
	put(0, c.t1)
	put(2, uint16(c.t2))
	put(4, uint16(c.t3))
	put(6, c.p1)
	put(8, uint16(c.p2))
	put(10, uint16(c.p3))
	put(12, uint16(c.p4))
	put(14, uint16(c.p5))
	put(16, uint16(c.p6))
	put(18, uint16(c.p7))
	put(20, uint16(c.p8))
	put(22, uint16(c.p9))
	b[24] = c.h1
	put(25, uint16(c.h2))
	b[27] = c.h3
	h4 := uint16(c.h4) & 0xFFF
	h5 := uint16(c.h5) & 0xFFF
	b[28] = byte(h4 >> 4)
	b[29] = byte(h4&0x0F) | byte(h5&0x0F)<<4
	b[30] = byte(h5 >> 4)
	b[31] = byte(c.h6)
	return b
}

func newFakeBus(cal [calibrationSize]byte) *fakeBus {
	f := &fakeBus{}
	f.regs[RegChipID] = ChipID
	for i, reg := range calibrationRegisters {
		f.regs[reg] = cal[i]
	}
	return f
}

func (f *fakeBus) setRaw(r RawTriplet) {
	f.regs[RegPressMSB] = byte(r.Pressure >> 12)
	f.regs[RegPressLSB] = byte(r.Pressure >> 4)
	f.regs[RegPressXLSB] = byte(r.Pressure&0x0F) << 4
	f.regs[RegTempMSB] = byte(r.Temperature >> 12)
	f.regs[RegTempLSB] = byte(r.Temperature >> 4)
	f.regs[RegTempXLSB] = byte(r.Temperature&0x0F) << 4
	f.regs[RegHumMSB] = byte(r.Humidity >> 8)
	f.regs[RegHumLSB] = byte(r.Humidity)
}

func (f *fakeBus) String() string {
	return "fake"
}

func (f *fakeBus) ReadReg(reg Register) (byte, error) {
	f.nReads++
	f.reads = append(f.reads, reg)
	if f.failRead != 0 && f.nReads == f.failRead {
		return 0, errFakeBus
	}
	return f.regs[reg], nil
}

func (f *fakeBus) ReadBlock(reg Register, b []byte) error {
	f.reads = append(f.reads, reg)
	for i := range b {
		b[i] = f.regs[(int(reg)+i)&0xFF]
	}
	return nil
}

func (f *fakeBus) WriteReg(reg Register, v byte) error {
	if f.hasFailWrite && reg == f.failWrite {
		return errFakeBus
	}
	f.writes = append(f.writes, regWrite{reg, v})
	if reg != RegReset {
		f.regs[reg] = v
	}
	return nil
}
