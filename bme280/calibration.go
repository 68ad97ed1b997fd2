package bme280

const calibrationSize = 32

// Calibration holds the factory trimming coefficients of one device.
//
// The integer values stored in NVM are widened to float64 on decode. A
// Calibration is a plain value: it can be copied and shared between
// goroutines freely.
type Calibration struct {
	T1 float64 `json:"t1"` // u16
	T2 float64 `json:"t2"` // s16
	T3 float64 `json:"t3"` // s16

	P1 float64 `json:"p1"` // u16
	P2 float64 `json:"p2"` // s16
	P3 float64 `json:"p3"` // s16
	P4 float64 `json:"p4"` // s16
	P5 float64 `json:"p5"` // s16
	P6 float64 `json:"p6"` // s16
	P7 float64 `json:"p7"` // s16
	P8 float64 `json:"p8"` // s16
	P9 float64 `json:"p9"` // s16

	H1 float64 `json:"h1"` // u8
	H2 float64 `json:"h2"` // s16
	H3 float64 `json:"h3"` // u8
	H4 float64 `json:"h4"` // s12
	H5 float64 `json:"h5"` // s12
	H6 float64 `json:"h6"` // s8
}

// LoadCalibration reads the 32 calibration bytes one register at a time and
// decodes them.
//
// The first failed read aborts the load.
func LoadCalibration(b Bus) (Calibration, error) {
	var raw [calibrationSize]byte
	for i, reg := range calibrationRegisters {
		v, err := b.ReadReg(reg)
		if err != nil {
			return Calibration{}, readErr(reg, err)
		}
		raw[i] = v
	}
	return DecodeCalibration(raw), nil
}

// DecodeCalibration parses calibration bytes ordered as T1..P9 (0x88~0x9F),
// H1 (0xA1) then H2..H6 (0xE1~0xE7).
//
// Every input decodes to some Calibration; no plausibility check is done.
func DecodeCalibration(b [calibrationSize]byte) (c Calibration) {
	getUInt16 := func(lsb, msb byte) float64 {
		return float64(uint16(lsb) | uint16(msb)<<8)
	}

	getInt16 := func(lsb, msb byte) float64 {
		return float64(int16(uint16(lsb) | uint16(msb)<<8))
	}

	c.T1 = getUInt16(b[0], b[1])
	c.T2 = getInt16(b[2], b[3])
	c.T3 = getInt16(b[4], b[5])

	c.P1 = getUInt16(b[6], b[7])
	c.P2 = getInt16(b[8], b[9])
	c.P3 = getInt16(b[10], b[11])
	c.P4 = getInt16(b[12], b[13])
	c.P5 = getInt16(b[14], b[15])
	c.P6 = getInt16(b[16], b[17])
	c.P7 = getInt16(b[18], b[19])
	c.P8 = getInt16(b[20], b[21])
	c.P9 = getInt16(b[22], b[23])

	c.H1 = float64(b[24])
	c.H2 = getInt16(b[25], b[26])
	c.H3 = float64(b[27])
	// 0xE5 is shared: H4 gets the low nibble, H5 the high one.
	c.H4 = float64(signExtend12(uint16(b[28])<<4 | uint16(b[29]&0x0F)))
	c.H5 = float64(signExtend12(uint16(b[30])<<4 | uint16(b[29]>>4)))
	c.H6 = float64(int8(b[31]))
	return c
}

// signExtend12 moves a 12 bit field to the top of a 16 bit word and shifts it
// back arithmetically.
func signExtend12(v uint16) int16 {
	return int16(v<<4) >> 4
}
