package bme280

import (
	"math"

	"periph.io/x/conn/v3/physic"
)

// Temperature in °C.
type Temperature float64

// Pressure in hPa.
type Pressure float64

// Humidity in %RH, always within [0, 100].
type Humidity float64

// FineTemperature is the intermediate value produced by
// CompensateTemperature and consumed by pressure and humidity compensation.
//
// It can only be obtained from CompensateTemperature.
type FineTemperature struct {
	v float64
}

// Value returns the raw t_fine value.
func (f FineTemperature) Value() float64 {
	return f.v
}

// Measurement is one compensated sample.
type Measurement struct {
	Temperature Temperature `json:"temperature"`
	Pressure    Pressure    `json:"pressure"`
	Humidity    Humidity    `json:"humidity"`
}

// CompensateTemperature returns temperature in °C and the fine temperature
// needed by the other two compensations. Output value of 25.08 equals
// 25.08 °C.
//
// raw has 20 bits of resolution.
func CompensateTemperature(c Calibration, raw RawTemperature) (Temperature, FineTemperature) {
	adc := float64(raw)
	var1 := (adc/16384.0 - c.T1/1024.0) * c.T2
	d := adc/131072.0 - c.T1/8192.0
	var2 := d * d * c.T3
	tFine := var1 + var2
	return Temperature(tFine / 5120.0), FineTemperature{v: tFine}
}

// CompensatePressure returns pressure in hPa.
//
// raw has 20 bits of resolution.
func CompensatePressure(c Calibration, raw RawPressure, fine FineTemperature) Pressure {
	var1 := fine.v/2.0 - 64000.0
	var2 := var1 * var1 * c.P6 / 32768.0
	var2 = var2 + var1*c.P5*2.0
	var2 = var2/4.0 + c.P4*65536.0
	var1 = (c.P3*var1*var1/524288.0 + c.P2*var1) / 524288.0
	var1 = (1.0 + var1/32768.0) * c.P1
	if var1 == 0 {
		// Avoid exception caused by division by zero.
		return 0
	}
	p := 1048576.0 - float64(raw)
	p = (p - var2/4096.0) * 6250.0 / var1
	var1 = c.P9 * p * p / 2147483648.0
	var2 = p * c.P8 / 32768.0
	p = p + (var1+var2+c.P7)/16.0
	return Pressure(p / 100)
}

// CompensateHumidity returns humidity in %RH, capped to [0, 100].
//
// raw has 16 bits of resolution.
func CompensateHumidity(c Calibration, raw RawHumidity, fine FineTemperature) Humidity {
	h := fine.v - 76800.0
	h = (float64(raw) - (c.H4*64.0 + c.H5/16384.0*h)) *
		(c.H2 / 65536.0 * (1.0 + c.H6/67108864.0*h*(1.0+c.H3/67108864.0*h)))
	h = h * (1.0 - c.H1*h/524288.0)
	switch {
	case math.IsNaN(h), h < 0:
		h = 0
	case h > 100:
		h = 100
	}
	return Humidity(h)
}

// Compensate converts one raw sample. Temperature is compensated first and
// its fine temperature is used for the two others.
func Compensate(c Calibration, raw RawTriplet) Measurement {
	t, fine := CompensateTemperature(c, raw.Temperature)
	return Measurement{
		Temperature: t,
		Pressure:    CompensatePressure(c, raw.Pressure, fine),
		Humidity:    CompensateHumidity(c, raw.Humidity, fine),
	}
}

// CalibratedResults runs one read-compensate cycle: the raw temperature is
// read and compensated, then pressure and humidity are read and compensated
// with the fine temperature of this same cycle.
func CalibratedResults(b Bus, c Calibration) (Measurement, error) {
	rawT, err := ReadRawTemperature(b)
	if err != nil {
		return Measurement{}, err
	}
	t, fine := CompensateTemperature(c, rawT)
	rawP, err := ReadRawPressure(b)
	if err != nil {
		return Measurement{}, err
	}
	rawH, err := ReadRawHumidity(b)
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{
		Temperature: t,
		Pressure:    CompensatePressure(c, rawP, fine),
		Humidity:    CompensateHumidity(c, rawH, fine),
	}, nil
}

// Env converts m to periph units.
func (m Measurement) Env() physic.Env {
	return physic.Env{
		Temperature: physic.Temperature(math.Round(float64(m.Temperature)*1000))*physic.MilliKelvin + physic.ZeroCelsius,
		Pressure:    physic.Pressure(math.Round(float64(m.Pressure)*100*1000)) * physic.MilliPascal,
		Humidity:    physic.RelativeHumidity(math.Round(float64(m.Humidity)*10000)) * physic.MicroRH,
	}
}
