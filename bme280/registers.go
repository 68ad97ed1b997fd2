package bme280

import "fmt"

// Register is a byte address on the BME280 register map.
type Register uint8

const (
	RegChipID Register = 0xD0 // read-only, should contain 0x60
	RegReset  Register = 0xE0 // write ResetWord to soft reset

	// control registers

	RegCtrlHum  Register = 0xF2
	RegStatus   Register = 0xF3
	RegCtrlMeas Register = 0xF4
	RegConfig   Register = 0xF5

	// data registers

	RegPressMSB  Register = 0xF7
	RegPressLSB  Register = 0xF8
	RegPressXLSB Register = 0xF9
	RegTempMSB   Register = 0xFA
	RegTempLSB   Register = 0xFB
	RegTempXLSB  Register = 0xFC
	RegHumMSB    Register = 0xFD
	RegHumLSB    Register = 0xFE

	// calibration, bank 1 (0x88~0xA1)

	RegT1LSB Register = 0x88
	RegT1MSB Register = 0x89
	RegT2LSB Register = 0x8A
	RegT2MSB Register = 0x8B
	RegT3LSB Register = 0x8C
	RegT3MSB Register = 0x8D

	RegP1LSB Register = 0x8E
	RegP1MSB Register = 0x8F
	RegP2LSB Register = 0x90
	RegP2MSB Register = 0x91
	RegP3LSB Register = 0x92
	RegP3MSB Register = 0x93
	RegP4LSB Register = 0x94
	RegP4MSB Register = 0x95
	RegP5LSB Register = 0x96
	RegP5MSB Register = 0x97
	RegP6LSB Register = 0x98
	RegP6MSB Register = 0x99
	RegP7LSB Register = 0x9A
	RegP7MSB Register = 0x9B
	RegP8LSB Register = 0x9C
	RegP8MSB Register = 0x9D
	RegP9LSB Register = 0x9E
	RegP9MSB Register = 0x9F

	RegH1 Register = 0xA1

	// calibration, bank 2 (0xE1~0xE7)

	RegH2LSB    Register = 0xE1
	RegH2MSB    Register = 0xE2
	RegH3       Register = 0xE3
	RegH4MSB    Register = 0xE4 // H4[11:4]
	RegH4LSBH5L Register = 0xE5 // H4[3:0] in bits 3:0, H5[3:0] in bits 7:4
	RegH5MSB    Register = 0xE6 // H5[11:4]
	RegH6       Register = 0xE7
)

// ResetWord is the only value that triggers a soft reset when written to
// RegReset.
const ResetWord byte = 0xB6

// ChipID is the content of RegChipID on a BME280.
const ChipID byte = 0x60

// calibrationRegisters lists the calibration bytes in the order
// DecodeCalibration expects them.
var calibrationRegisters = [calibrationSize]Register{
	RegT1LSB, RegT1MSB,
	RegT2LSB, RegT2MSB,
	RegT3LSB, RegT3MSB,
	RegP1LSB, RegP1MSB,
	RegP2LSB, RegP2MSB,
	RegP3LSB, RegP3MSB,
	RegP4LSB, RegP4MSB,
	RegP5LSB, RegP5MSB,
	RegP6LSB, RegP6MSB,
	RegP7LSB, RegP7MSB,
	RegP8LSB, RegP8MSB,
	RegP9LSB, RegP9MSB,
	RegH1,
	RegH2LSB, RegH2MSB,
	RegH3,
	RegH4MSB, RegH4LSBH5L, RegH5MSB,
	RegH6,
}

var registerNames = map[Register]string{
	RegChipID:    "id",
	RegReset:     "reset",
	RegCtrlHum:   "ctrl_hum",
	RegStatus:    "status",
	RegCtrlMeas:  "ctrl_meas",
	RegConfig:    "config",
	RegPressMSB:  "press_msb",
	RegPressLSB:  "press_lsb",
	RegPressXLSB: "press_xlsb",
	RegTempMSB:   "temp_msb",
	RegTempLSB:   "temp_lsb",
	RegTempXLSB:  "temp_xlsb",
	RegHumMSB:    "hum_msb",
	RegHumLSB:    "hum_lsb",
	RegT1LSB:     "dig_T1_lsb",
	RegT1MSB:     "dig_T1_msb",
	RegT2LSB:     "dig_T2_lsb",
	RegT2MSB:     "dig_T2_msb",
	RegT3LSB:     "dig_T3_lsb",
	RegT3MSB:     "dig_T3_msb",
	RegP1LSB:     "dig_P1_lsb",
	RegP1MSB:     "dig_P1_msb",
	RegP2LSB:     "dig_P2_lsb",
	RegP2MSB:     "dig_P2_msb",
	RegP3LSB:     "dig_P3_lsb",
	RegP3MSB:     "dig_P3_msb",
	RegP4LSB:     "dig_P4_lsb",
	RegP4MSB:     "dig_P4_msb",
	RegP5LSB:     "dig_P5_lsb",
	RegP5MSB:     "dig_P5_msb",
	RegP6LSB:     "dig_P6_lsb",
	RegP6MSB:     "dig_P6_msb",
	RegP7LSB:     "dig_P7_lsb",
	RegP7MSB:     "dig_P7_msb",
	RegP8LSB:     "dig_P8_lsb",
	RegP8MSB:     "dig_P8_msb",
	RegP9LSB:     "dig_P9_lsb",
	RegP9MSB:     "dig_P9_msb",
	RegH1:        "dig_H1",
	RegH2LSB:     "dig_H2_lsb",
	RegH2MSB:     "dig_H2_msb",
	RegH3:        "dig_H3",
	RegH4MSB:     "dig_H4_msb",
	RegH4LSBH5L:  "dig_H4_lsb_H5_lsb",
	RegH5MSB:     "dig_H5_msb",
	RegH6:        "dig_H6",
}

func (r Register) String() string {
	if n, ok := registerNames[r]; ok {
		return fmt.Sprintf("%s(0x%02X)", n, uint8(r))
	}
	return fmt.Sprintf("Register(0x%02X)", uint8(r))
}
