// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bme280 controls a Bosch BME280 temperature, pressure and humidity
// sensor over I²C or SPI.
//
// The register level operations (Reset, SetUp, ReadStatus, LoadCalibration,
// the ReadRaw* functions) take a Bus and do no locking. The compensation
// functions are pure. Dev bundles both with the periph.io conn.Resource and
// physic.SenseEnv interfaces.
//
// Raw data is read MSB, LSB then XLSB. Humidity is read from hum_msb (0xFD)
// then hum_lsb (0xFE). Pressure is reported in hPa.
//
// # Datasheet
//
// The URLs tend to rot, visit https://www.bosch-sensortec.com if they become
// invalid.
//
// https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme280-ds002.pdf
//
// C Reference code can be found from Bosch at
// https://github.com/boschsensortec/BME280_SensorAPI
package bme280
