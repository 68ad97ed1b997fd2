// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bme280

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

var (
	ErrUnsupportedAddress = errors.New("bme280: given address not supported by device")
	ErrUnexpectedChip     = errors.New("unexpected chip id")
	ErrAlreadySensing     = errors.New("already sensing continuously")
	ErrNVMTimeout         = errors.New("timed out waiting for NVM copy")
	ErrMeasureTimeout     = errors.New("timed out waiting for measurement")
	ErrNoTemperature      = errors.New("temperature measurement is required, use at least O1x")
)

const (
	nvmPollAttempts = 10
	nvmPollInterval = 2 * time.Millisecond

	measurePollAttempts = 20
	measurePollInterval = time.Millisecond
)

// NewI2C returns an object that communicates over I²C to a BME280
// environmental sensor.
//
// The address must be 0x76 or 0x77. The value used depends on HW
// configuration of the sensor's SDO pin.
//
// It is recommended to call Halt() when done with the device so it stops
// sampling.
func NewI2C(b i2c.Bus, addr uint16, cfg *Config) (*Dev, error) {
	switch addr {
	case 0x76, 0x77:
	default:
		return nil, ErrUnsupportedAddress
	}
	return New(&connBus{c: &i2c.Dev{Bus: b, Addr: addr}}, cfg)
}

// NewSPI returns an object that communicates over SPI to a BME280
// environmental sensor.
//
// When using SPI, the CS line must be used.
func NewSPI(p spi.Port, cfg *Config) (*Dev, error) {
	// It works both in Mode0 and Mode3.
	c, err := p.Connect(10*physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		return nil, fmt.Errorf("bme280: %v", err)
	}
	return New(&connBus{c: c, isSPI: true}, cfg)
}

// New returns a device on an already addressed Bus.
//
// The device is reset, its calibration is loaded and cfg is written. A nil
// cfg means DefaultConfig.
func New(b Bus, cfg *Config) (*Dev, error) {
	d := &Dev{bus: b, name: "BME280"}
	if err := d.makeDev(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is a handle to an initialized BME280 device.
//
// The package level functions (Reset, SetUp, ReadStatus...) do no locking.
// Dev serializes its own accesses so it can run SenseContinuous in the
// background.
type Dev struct {
	bus  Bus
	name string
	cfg  Config
	cal  Calibration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.name, d.bus)
}

// Calibration returns the calibration loaded when the device was opened.
func (d *Dev) Calibration() Calibration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cal
}

// Config returns the configuration last written through this handle. It is
// not read back from the device.
func (d *Dev) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Reset soft resets the device. The calibration and configuration must be
// written again afterwards, see LoadCalibration and SetUp.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(Reset(d.bus))
}

// SetUp writes cfg to the device.
func (d *Dev) SetUp(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cfg.Temperature == Off {
		return d.wrap(ErrNoTemperature)
	}
	if err := SetUp(d.bus, cfg); err != nil {
		return d.wrap(err)
	}
	d.cfg = cfg
	return nil
}

// LoadCalibration reads the calibration again and caches it.
func (d *Dev) LoadCalibration() (Calibration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := LoadCalibration(d.bus)
	if err != nil {
		return Calibration{}, d.wrap(err)
	}
	d.cal = c
	return c, nil
}

// ReadStatus reads the status register.
func (d *Dev) ReadStatus() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := ReadStatus(d.bus)
	return s, d.wrap(err)
}

// ReadRawTriplet reads the three ADC outputs without compensating them.
func (d *Dev) ReadRawTriplet() (RawTriplet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, err := ReadRawTriplet(d.bus)
	return r, d.wrap(err)
}

// Compensate converts raw with the cached calibration.
func (d *Dev) Compensate(raw RawTriplet) Measurement {
	return Compensate(d.Calibration(), raw)
}

// CalibratedResults runs one read-compensate cycle with the cached
// calibration.
func (d *Dev) CalibratedResults() (Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, err := CalibratedResults(d.bus, d.cal)
	return m, d.wrap(err)
}

// Sense requests a one time measurement as °C, kPa and % of relative humidity.
//
// Unless the device is in Normal mode, a forced conversion is triggered and
// waited for first.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return d.wrap(ErrAlreadySensing)
	}
	return d.wrap(d.sense(e))
}

// SenseContinuous returns measurements as °C, kPa and % of relative humidity
// on a continuous basis.
//
// The application must call Halt() to stop the sensing when done to stop the
// sensor and close the channel.
//
// It's the responsibility of the caller to retrieve the values from the
// channel as fast as possible, otherwise the interval may not be respected.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	// Don't send the stop command to the device.
	d.stopSensing()

	d.mu.Lock()
	defer d.mu.Unlock()
	sensing := make(chan physic.Env)
	stop := make(chan struct{})
	d.stop = stop
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(sensing)
		d.sensingContinuous(interval, sensing, stop)
		// Let Sense work again if the loop died on its own.
		d.mu.Lock()
		if d.stop == stop {
			d.stop = nil
		}
		d.mu.Unlock()
	}()
	return sensing, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Pressure = 15625 * physic.MicroPascal / 4
	e.Humidity = 10000 / 1024 * physic.MicroRH
}

// Halt stops the BME280 from acquiring measurements as initiated by
// SenseContinuous() and puts it to sleep.
//
// It is recommended to call this function before terminating the process to
// reduce idle power usage and a goroutine leak.
func (d *Dev) Halt() error {
	d.stopSensing()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.bus.WriteReg(RegCtrlMeas, d.cfg.ctrlMeas(Sleep)); err != nil {
		return d.wrap(writeErr(RegCtrlMeas, err))
	}
	d.cfg.Mode = Sleep
	return nil
}

//

func (d *Dev) makeDev(cfg *Config) error {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	d.cfg = *cfg
	if d.cfg.Temperature == Off {
		return d.wrap(ErrNoTemperature)
	}

	id, err := d.bus.ReadReg(RegChipID)
	if err != nil {
		return d.wrap(readErr(RegChipID, err))
	}
	if id != ChipID {
		return d.wrap(fmt.Errorf("%w %#x", ErrUnexpectedChip, id))
	}

	if err := Reset(d.bus); err != nil {
		return d.wrap(err)
	}
	if err := d.waitNVM(); err != nil {
		return d.wrap(err)
	}
	if d.cal, err = LoadCalibration(d.bus); err != nil {
		return d.wrap(err)
	}
	return d.wrap(SetUp(d.bus, d.cfg))
}

// stopSensing stops the SenseContinuous goroutine, if any.
//
// It must be called without d.mu held, the goroutine takes it on every tick.
func (d *Dev) stopSensing() {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
}

// waitNVM polls the status register until the reset copy of the NVM is done.
func (d *Dev) waitNVM() error {
	for i := 0; i < nvmPollAttempts; i++ {
		s, err := ReadStatus(d.bus)
		if err != nil {
			return err
		}
		if !s.NVMUpdating {
			return nil
		}
		doSleep(nvmPollInterval)
	}
	return ErrNVMTimeout
}

// waitMeasurement polls the status register until the forced conversion is
// done.
func (d *Dev) waitMeasurement() error {
	for i := 0; i < measurePollAttempts; i++ {
		s, err := ReadStatus(d.bus)
		if err != nil {
			return err
		}
		if !s.Measuring {
			return nil
		}
		doSleep(measurePollInterval)
	}
	return ErrMeasureTimeout
}

// sense runs one measurement cycle.
//
// It must be called with d.mu lock held.
func (d *Dev) sense(e *physic.Env) error {
	if d.cfg.Mode != Normal {
		if err := d.bus.WriteReg(RegCtrlMeas, d.cfg.ctrlMeas(Forced)); err != nil {
			return writeErr(RegCtrlMeas, err)
		}
		doSleep(d.cfg.measurementDelay())
		if err := d.waitMeasurement(); err != nil {
			return err
		}
	}
	raw, err := ReadRawBurst(d.bus)
	if err != nil {
		return err
	}
	m := Compensate(d.cal, raw)
	*e = m.Env()
	if d.cfg.Pressure == Off {
		e.Pressure = 0
	}
	if d.cfg.Humidity == Off {
		e.Humidity = 0
	}
	return nil
}

func (d *Dev) sensingContinuous(interval time.Duration, sensing chan<- physic.Env, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	var err error
	for {
		// Do one initial sensing right away.
		e := physic.Env{}
		d.mu.Lock()
		err = d.sense(&e)
		d.mu.Unlock()
		if err != nil {
			log.Printf("%s: failed to sense: %v", d, err)
			return
		}
		select {
		case sensing <- e:
		case <-stop:
			return
		}
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

func (d *Dev) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", strings.ToLower(d.name), err)
}

var doSleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
