package bme280

import (
	"fmt"
	"strings"
	"time"
)

// Oversampling affects how much time is taken to measure each of temperature,
// pressure and humidity.
//
// Using high oversampling and low standby results in highest power
// consumption, but this is still below 1mA so we generally don't care.
type Oversampling uint8

// Possible oversampling values.
//
// Off skips the measurement entirely; the data registers then hold 0x80000
// (0x8000 for humidity).
const (
	Off  Oversampling = 0
	O1x  Oversampling = 1
	O2x  Oversampling = 2
	O4x  Oversampling = 3
	O8x  Oversampling = 4
	O16x Oversampling = 5
)

const oversamplingName = "Off1x2x4x8x16x"

var oversamplingIndex = [...]uint8{0, 3, 5, 7, 9, 11, 14}

func (o Oversampling) String() string {
	if o >= Oversampling(len(oversamplingIndex)-1) {
		return fmt.Sprintf("Oversampling(%d)", o)
	}
	return oversamplingName[oversamplingIndex[o]:oversamplingIndex[o+1]]
}

func (o Oversampling) asValue() int {
	switch o {
	case O1x:
		return 1
	case O2x:
		return 2
	case O4x:
		return 4
	case O8x:
		return 8
	case O16x:
		return 16
	default:
		return 0
	}
}

// ParseOversampling accepts the names returned by Oversampling.String, case
// insensitive. "skip" is an alias for "off".
func ParseOversampling(s string) (Oversampling, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "skip" {
		return Off, nil
	}
	for o := Off; o <= O16x; o++ {
		if strings.ToLower(o.String()) == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("bme280: invalid oversampling %q", s)
}

// Mode is the sensor power mode.
type Mode uint8

const (
	Sleep  Mode = 0 // no operation, all registers accessible, lowest power, selected after startup
	Forced Mode = 1 // perform one measurement, store results and return to sleep mode
	Normal Mode = 3 // perpetual cycling of measurements and inactive periods
)

func (m Mode) String() string {
	switch m {
	case Sleep:
		return "sleep"
	case Forced:
		return "forced"
	case Normal:
		return "normal"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// ParseMode accepts "sleep", "forced" or "normal".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sleep":
		return Sleep, nil
	case "forced":
		return Forced, nil
	case "normal":
		return Normal, nil
	}
	return 0, fmt.Errorf("bme280: invalid mode %q", s)
}

// Standby is the inactive duration between two measurements in Normal mode.
type Standby uint8

// Possible standby values, encoded as t_sb in the config register.
const (
	S500us  Standby = 0
	S62_5ms Standby = 1
	S125ms  Standby = 2
	S250ms  Standby = 3
	S500ms  Standby = 4
	S1s     Standby = 5
	S10ms   Standby = 6
	S20ms   Standby = 7
)

var standbyDurations = [...]time.Duration{
	S500us:  500 * time.Microsecond,
	S62_5ms: 62500 * time.Microsecond,
	S125ms:  125 * time.Millisecond,
	S250ms:  250 * time.Millisecond,
	S500ms:  500 * time.Millisecond,
	S1s:     time.Second,
	S10ms:   10 * time.Millisecond,
	S20ms:   20 * time.Millisecond,
}

// Duration returns the inactive duration, or 0 for an invalid value.
func (s Standby) Duration() time.Duration {
	if int(s) >= len(standbyDurations) {
		return 0
	}
	return standbyDurations[s]
}

func (s Standby) String() string {
	if int(s) >= len(standbyDurations) {
		return fmt.Sprintf("Standby(%d)", s)
	}
	return s.Duration().String()
}

// ParseStandby accepts a duration string ("1s", "62.5ms", "500µs"...) which
// must match one of the eight supported values exactly.
func ParseStandby(s string) (Standby, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bme280: invalid standby %q: %w", s, err)
	}
	for i, v := range standbyDurations {
		if v == d {
			return Standby(i), nil
		}
	}
	return 0, fmt.Errorf("bme280: unsupported standby %s", d)
}

// Filter specifies the internal IIR filter to get steadier measurements.
//
// Oversampling will get better measurements than filtering but at a larger
// power consumption cost, which may slightly affect temperature measurement.
type Filter uint8

// Possible filtering values.
//
// The higher the filter, the slower the value converges but the more stable
// the measurement is.
const (
	NoFilter Filter = 0
	F2       Filter = 1
	F4       Filter = 2
	F8       Filter = 3
	F16      Filter = 4
)

func (f Filter) String() string {
	switch f {
	case NoFilter:
		return "off"
	case F2, F4, F8, F16:
		return fmt.Sprintf("%d", 1<<f)
	default:
		return fmt.Sprintf("Filter(%d)", f)
	}
}

// ParseFilter accepts "off", "2", "4", "8" or "16".
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f := NoFilter; f <= F16; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("bme280: invalid filter %q", s)
}

// Config is what SetUp writes to the device.
//
// Recommended sensing settings as per the datasheet:
//
// → Weather monitoring: forced mode once per minute, all sensors O1x, filter
// NoFilter.
//
// → Humidity sensing: forced mode once per second, pressure Off, humidity and
// temperature O1x, filter NoFilter.
//
// → Indoor navigation: normal mode, standby S500us, pressure O16x,
// temperature O2x, humidity O1x, filter F16.
//
// → Gaming: normal mode, standby S500us, pressure O4x, temperature O1x,
// humidity Off, filter F16.
type Config struct {
	// Temperature must be measured for pressure and humidity to be
	// compensated.
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Mode        Mode
	// Standby is only used in Normal mode.
	Standby Standby
	Filter  Filter
	// SPI3Wire enables the 3-wire SPI interface.
	SPI3Wire bool
}

// DefaultConfig samples every channel once, continuously, once per second.
var DefaultConfig = Config{
	Temperature: O1x,
	Pressure:    O1x,
	Humidity:    O1x,
	Mode:        Normal,
	Standby:     S1s,
	Filter:      NoFilter,
}

func (c *Config) ctrlHum() byte {
	return byte(c.Humidity) & 0x07
}

func (c *Config) ctrlMeas(m Mode) byte {
	return (byte(c.Temperature)&0x07)<<5 | (byte(c.Pressure)&0x07)<<2 | byte(m)&0x03
}

func (c *Config) config() byte {
	b := (byte(c.Standby)&0x07)<<5 | (byte(c.Filter)&0x07)<<2
	if c.SPI3Wire {
		b |= 0x01
	}
	return b
}

// measurementDelay is the typical conversion time, datasheet appendix 9.1.
func (c *Config) measurementDelay() time.Duration {
	µs := 1000
	if c.Temperature != Off {
		µs += 2000 * c.Temperature.asValue()
	}
	if c.Pressure != Off {
		µs += 2000*c.Pressure.asValue() + 500
	}
	if c.Humidity != Off {
		µs += 2000*c.Humidity.asValue() + 500
	}
	return time.Microsecond * time.Duration(µs)
}
