package bme280

const (
	statusMeasuring byte = 0x08 // bit 3
	statusIMUpdate  byte = 0x01 // bit 0
)

// Status is the content of the status register.
type Status struct {
	// Measuring is set while a conversion is running.
	Measuring bool
	// NVMUpdating is set while NVM data is copied to image registers, after
	// power on or reset.
	NVMUpdating bool
}

// Reset writes ResetWord to the reset register. It does not wait for the
// device to come back.
func Reset(b Bus) error {
	if err := b.WriteReg(RegReset, ResetWord); err != nil {
		return writeErr(RegReset, err)
	}
	return nil
}

// SetUp writes ctrl_hum, ctrl_meas and config, in that order. ctrl_hum only
// takes effect after ctrl_meas is written.
func SetUp(b Bus, c Config) error {
	regs := [...]struct {
		reg Register
		v   byte
	}{
		{RegCtrlHum, c.ctrlHum()},
		{RegCtrlMeas, c.ctrlMeas(c.Mode)},
		{RegConfig, c.config()},
	}
	for _, r := range regs {
		if err := b.WriteReg(r.reg, r.v); err != nil {
			return writeErr(r.reg, err)
		}
	}
	return nil
}

// ReadStatus reads the status register.
func ReadStatus(b Bus) (Status, error) {
	v, err := b.ReadReg(RegStatus)
	if err != nil {
		return Status{}, readErr(RegStatus, err)
	}
	return Status{
		Measuring:   v&statusMeasuring != 0,
		NVMUpdating: v&statusIMUpdate != 0,
	}, nil
}
