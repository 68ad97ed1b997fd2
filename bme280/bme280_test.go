package bme280

import (
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// initOps returns the I²C transactions done by NewI2C with DefaultConfig.
func initOps(addr uint16, cal [calibrationSize]byte) []i2ctest.IO {
	ops := []i2ctest.IO{
		// Chip ID
		{Addr: addr, W: []byte{0xD0}, R: []byte{0x60}},
		// Reset
		{Addr: addr, W: []byte{0xE0, 0xB6}},
		// Status, NVM copy done
		{Addr: addr, W: []byte{0xF3}, R: []byte{0x00}},
	}
	for i, reg := range calibrationRegisters {
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{byte(reg)}, R: []byte{cal[i]}})
	}
	return append(ops,
		// ctrl_hum
		i2ctest.IO{Addr: addr, W: []byte{0xF2, 0x01}},
		// ctrl_meas
		i2ctest.IO{Addr: addr, W: []byte{0xF4, 0x27}},
		// config
		i2ctest.IO{Addr: addr, W: []byte{0xF5, 0xA0}},
	)
}

func TestNewI2C(t *testing.T) {
	cal := datasheetCoeffs.encode()
	ops := initOps(0x76, cal)
	ops = append(ops,
		// Sense in normal mode: burst read of the data registers.
		i2ctest.IO{Addr: 0x76, W: []byte{0xF7}, R: []byte{0x65, 0x5A, 0xC0, 0x7E, 0xED, 0x00, 0x5C, 0x15}},
		// Halt
		i2ctest.IO{Addr: 0x76, W: []byte{0xF4, 0x24}},
	)
	bus := i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := NewI2C(&bus, 0x76, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s := dev.String(); s != "BME280{playback(118)}" {
		t.Fatal(s)
	}
	if c := dev.Calibration(); c != DecodeCalibration(cal) {
		t.Fatalf("calibration = %+v", c)
	}
	e := physic.Env{}
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if got := e.Temperature.Celsius(); math.Abs(got-25.08) > 1e-2 {
		t.Errorf("temperature = %v", got)
	}
	if got := float64(e.Pressure) / float64(physic.Pascal); math.Abs(got-100653.27) > 1 {
		t.Errorf("pressure = %v Pa", got)
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewI2C_badAddr(t *testing.T) {
	bus := i2ctest.Playback{DontPanic: true}
	if _, err := NewI2C(&bus, 0x42, nil); !errors.Is(err, ErrUnsupportedAddress) {
		t.Fatalf("NewI2C() = %v", err)
	}
}

func TestNewI2C_badChip(t *testing.T) {
	bus := i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: 0x77, W: []byte{0xD0}, R: []byte{0x58}}},
		DontPanic: true,
	}
	if _, err := NewI2C(&bus, 0x77, nil); !errors.Is(err, ErrUnexpectedChip) {
		t.Fatalf("NewI2C() = %v", err)
	}
}

func TestNewI2C_readError(t *testing.T) {
	// No ops at all: the chip id read fails.
	bus := i2ctest.Playback{DontPanic: true}
	_, err := NewI2C(&bus, 0x76, nil)
	var be *BusError
	if !errors.As(err, &be) || be.Reg != RegChipID {
		t.Fatalf("NewI2C() = %v", err)
	}
}

func TestNew_noTemperature(t *testing.T) {
	f := newFakeBus(datasheetCoeffs.encode())
	cfg := DefaultConfig
	cfg.Temperature = Off
	if _, err := New(f, &cfg); !errors.Is(err, ErrNoTemperature) {
		t.Fatalf("New() = %v", err)
	}
}

func TestNew_nvmTimeout(t *testing.T) {
	f := newFakeBus(datasheetCoeffs.encode())
	f.regs[RegStatus] = 0x01
	if _, err := New(f, nil); !errors.Is(err, ErrNVMTimeout) {
		t.Fatalf("New() = %v", err)
	}
}

func TestDev_senseForced(t *testing.T) {
	f := newFakeBus(datasheetCoeffs.encode())
	f.setRaw(datasheetRaw)
	cfg := Config{Temperature: O2x, Pressure: Off, Humidity: O1x, Mode: Forced, Standby: S1s}
	dev, err := New(f, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	f.writes = nil
	e := physic.Env{}
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if len(f.writes) != 1 || f.writes[0] != (regWrite{RegCtrlMeas, 0b010_000_01}) {
		t.Fatalf("writes = %v", f.writes)
	}
	if e.Pressure != 0 {
		t.Errorf("pressure = %s, want 0 when skipped", e.Pressure)
	}
	if e.Humidity == 0 {
		t.Error("humidity not set")
	}
}

func TestDev_senseForcedStuck(t *testing.T) {
	f := newFakeBus(datasheetCoeffs.encode())
	cfg := Config{Temperature: O1x, Pressure: O1x, Humidity: O1x, Mode: Forced}
	dev, err := New(f, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	f.regs[RegStatus] = statusMeasuring
	f.reads = nil
	if err := dev.Sense(&physic.Env{}); !errors.Is(err, ErrMeasureTimeout) {
		t.Fatalf("Sense() = %v", err)
	}
	if len(f.reads) != measurePollAttempts {
		t.Fatalf("%d status reads, want %d", len(f.reads), measurePollAttempts)
	}
	// The lock was released.
	s, err := dev.ReadStatus()
	if err != nil || !s.Measuring {
		t.Fatalf("ReadStatus() = %+v, %v", s, err)
	}
}

func TestDev_methods(t *testing.T) {
	f := newFakeBus(datasheetCoeffs.encode())
	f.setRaw(datasheetRaw)
	dev, err := New(f, nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := dev.ReadRawTriplet()
	if err != nil {
		t.Fatal(err)
	}
	if raw != datasheetRaw {
		t.Fatalf("ReadRawTriplet() = %+v", raw)
	}
	m, err := dev.CalibratedResults()
	if err != nil {
		t.Fatal(err)
	}
	if m != dev.Compensate(raw) {
		t.Fatalf("CalibratedResults() = %+v, Compensate() = %+v", m, dev.Compensate(raw))
	}
	s, err := dev.ReadStatus()
	if err != nil || s != (Status{}) {
		t.Fatalf("ReadStatus() = %+v, %v", s, err)
	}

	f.writes = nil
	if err := dev.Reset(); err != nil {
		t.Fatal(err)
	}
	cfg := Config{Temperature: O4x, Pressure: O4x, Humidity: O4x, Mode: Sleep, Filter: F4}
	if err := dev.SetUp(cfg); err != nil {
		t.Fatal(err)
	}
	if dev.Config() != cfg {
		t.Fatalf("Config() = %+v", dev.Config())
	}
	// Config is what was written, the device is not queried.
	f.regs[RegCtrlMeas] = 0
	f.reads = nil
	if dev.Config() != cfg || len(f.reads) != 0 {
		t.Fatalf("Config() = %+v after %d reads", dev.Config(), len(f.reads))
	}
	if len(f.writes) != 4 || f.writes[0].reg != RegReset || f.writes[1].reg != RegCtrlHum {
		t.Fatalf("writes = %v", f.writes)
	}
	if err := dev.SetUp(Config{}); !errors.Is(err, ErrNoTemperature) {
		t.Fatalf("SetUp() = %v", err)
	}

	f.regs[RegT1LSB] = 0
	c, err := dev.LoadCalibration()
	if err != nil {
		t.Fatal(err)
	}
	if c.T1 != 27504&0xFF00 || dev.Calibration() != c {
		t.Fatalf("LoadCalibration() = %+v", c)
	}
}

func TestDev_errorWrapping(t *testing.T) {
	f := newFakeBus(datasheetCoeffs.encode())
	dev, err := New(f, nil)
	if err != nil {
		t.Fatal(err)
	}
	f.failRead = f.nReads + 1
	_, err = dev.ReadStatus()
	var be *BusError
	if !errors.As(err, &be) || be.Reg != RegStatus {
		t.Fatalf("ReadStatus() = %v", err)
	}
	if want := "bme280: read status(0xF3): fake bus: nack"; err.Error() != want {
		t.Fatalf("%q != %q", err.Error(), want)
	}
}

func TestDev_senseContinuous(t *testing.T) {
	f := newFakeBus(datasheetCoeffs.encode())
	f.setRaw(datasheetRaw)
	dev, err := New(f, nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err := dev.SenseContinuous(time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		e, ok := <-c
		if !ok {
			t.Fatal("channel closed early")
		}
		if got := e.Temperature.Celsius(); math.Abs(got-25.08) > 1e-2 {
			t.Fatalf("temperature = %v", got)
		}
	}
	if err := dev.Sense(&physic.Env{}); !errors.Is(err, ErrAlreadySensing) {
		t.Fatalf("Sense() = %v", err)
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	for range c {
	}
	if last := f.writes[len(f.writes)-1]; last != (regWrite{RegCtrlMeas, 0x24}) {
		t.Fatalf("last write = %+v, want sleep", last)
	}
	if dev.Config().Mode != Sleep {
		t.Fatalf("mode = %s", dev.Config().Mode)
	}
}

func TestDev_senseContinuousFailure(t *testing.T) {
	f := newFakeBus(datasheetCoeffs.encode())
	f.setRaw(datasheetRaw)
	cfg := Config{Temperature: O1x, Pressure: O1x, Humidity: O1x, Mode: Forced}
	dev, err := New(f, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	f.failWrite = RegCtrlMeas
	f.hasFailWrite = true
	c, err := dev.SenseContinuous(time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	for range c {
	}

	f.hasFailWrite = false
	e := physic.Env{}
	if err := dev.Sense(&e); err != nil {
		t.Fatalf("Sense() after the loop stopped = %v", err)
	}
	if got := e.Temperature.Celsius(); math.Abs(got-25.08) > 1e-2 {
		t.Fatalf("temperature = %v", got)
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestDev_Precision(t *testing.T) {
	dev := &Dev{}
	e := physic.Env{}
	dev.Precision(&e)
	if e.Temperature != 10*physic.MilliKelvin || e.Humidity == 0 || e.Pressure == 0 {
		t.Fatalf("Precision() = %+v", e)
	}
}

func TestConnBus_SPI(t *testing.T) {
	p := conntest.Playback{
		Ops: []conntest.IO{
			{W: []byte{0xD0, 0x00}, R: []byte{0x00, 0x60}},
			{W: []byte{0x60, 0xB6}},
			{W: []byte{0xF7, 0x00, 0x00, 0x00}, R: []byte{0x00, 0x65, 0x5A, 0xC0}},
		},
		DontPanic: true,
	}
	b := &connBus{c: &p, isSPI: true}
	id, err := b.ReadReg(RegChipID)
	if err != nil || id != ChipID {
		t.Fatalf("ReadReg() = %#x, %v", id, err)
	}
	if err := Reset(b); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 3)
	if err := b.ReadBlock(RegPressMSB, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x65 || buf[1] != 0x5A || buf[2] != 0xC0 {
		t.Fatalf("ReadBlock() = %x", buf)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
