package bme280

// RawTemperature is the 20 bit temperature ADC output.
type RawTemperature uint32

// RawPressure is the 20 bit pressure ADC output.
type RawPressure uint32

// RawHumidity is the 16 bit humidity ADC output.
type RawHumidity uint16

// RawTriplet is one sample of all three ADC outputs.
type RawTriplet struct {
	Temperature RawTemperature
	Pressure    RawPressure
	Humidity    RawHumidity
}

// ReadRawTemperature reads temp_msb, temp_lsb and temp_xlsb in that order.
func ReadRawTemperature(b Bus) (RawTemperature, error) {
	v, err := read20(b, RegTempMSB, RegTempLSB, RegTempXLSB)
	return RawTemperature(v), err
}

// ReadRawPressure reads press_msb, press_lsb and press_xlsb in that order.
func ReadRawPressure(b Bus) (RawPressure, error) {
	v, err := read20(b, RegPressMSB, RegPressLSB, RegPressXLSB)
	return RawPressure(v), err
}

// ReadRawHumidity reads hum_msb then hum_lsb.
func ReadRawHumidity(b Bus) (RawHumidity, error) {
	msb, err := b.ReadReg(RegHumMSB)
	if err != nil {
		return 0, readErr(RegHumMSB, err)
	}
	lsb, err := b.ReadReg(RegHumLSB)
	if err != nil {
		return 0, readErr(RegHumLSB, err)
	}
	return RawHumidity(uint16(msb)<<8 | uint16(lsb)), nil
}

// ReadRawTriplet reads temperature, pressure and humidity, in that order.
func ReadRawTriplet(b Bus) (RawTriplet, error) {
	var r RawTriplet
	var err error
	if r.Temperature, err = ReadRawTemperature(b); err != nil {
		return RawTriplet{}, err
	}
	if r.Pressure, err = ReadRawPressure(b); err != nil {
		return RawTriplet{}, err
	}
	if r.Humidity, err = ReadRawHumidity(b); err != nil {
		return RawTriplet{}, err
	}
	return r, nil
}

// ReadRawBurst reads the eight data registers 0xF7~0xFE in a single
// transaction, which guarantees all three values come from the same
// conversion.
func ReadRawBurst(b Bus) (RawTriplet, error) {
	var buf [8]byte
	if err := b.ReadBlock(RegPressMSB, buf[:]); err != nil {
		return RawTriplet{}, readErr(RegPressMSB, err)
	}
	return RawTriplet{
		Pressure:    RawPressure(assemble20(buf[0], buf[1], buf[2])),
		Temperature: RawTemperature(assemble20(buf[3], buf[4], buf[5])),
		Humidity:    RawHumidity(uint16(buf[6])<<8 | uint16(buf[7])),
	}, nil
}

func read20(b Bus, msbReg, lsbReg, xlsbReg Register) (uint32, error) {
	msb, err := b.ReadReg(msbReg)
	if err != nil {
		return 0, readErr(msbReg, err)
	}
	lsb, err := b.ReadReg(lsbReg)
	if err != nil {
		return 0, readErr(lsbReg, err)
	}
	xlsb, err := b.ReadReg(xlsbReg)
	if err != nil {
		return 0, readErr(xlsbReg, err)
	}
	return assemble20(msb, lsb, xlsb), nil
}

// These values are 20 bits as per doc.
func assemble20(msb, lsb, xlsb byte) uint32 {
	return uint32(msb)<<12 | uint32(lsb)<<4 | uint32(xlsb)>>4
}
