package hwif

import "fmt"

// Command is a UC8179 opcode.
type Command uint8

const (
	PanelSettings              Command = 0x00
	PowerSettings              Command = 0x01
	PowerOff                   Command = 0x02
	PowerOffSequenceSettings   Command = 0x03
	PowerOn                    Command = 0x04
	PowerOnMeasures            Command = 0x05
	BoosterSoftStart           Command = 0x06
	DeepSleep                  Command = 0x07
	DisplayStartTransmission1  Command = 0x10
	DataStop                   Command = 0x11
	DisplayRefresh             Command = 0x12
	DisplayStartTransmission2  Command = 0x13
	DualSPI                    Command = 0x15
	AutoSequence               Command = 17
	LutVcom                    Command = 0x20
	LutBlue                    Command = 0x21
	LutWhite                   Command = 0x22
	LutGray1                   Command = 0x23
	LutGray2                   Command = 0x24
	KWLUOption                 Command = 0x2B
	PLLControl                 Command = 0x30
	TemperatureSensorCalib     Command = 0x40
	TemperatureSensorSelection Command = 0x41
	TemperatureSensorWrite     Command = 0x42
	TemperatureSensorRead      Command = 0x43
	PanelBreakCheck            Command = 0x44
	VCOMDataIntervalSetting    Command = 0x50
	LowPowerDetection          Command = 0x51
	EndVoltageSetting          Command = 0x52
	TCONSetting                Command = 0x60
	ResolutionSetting          Command = 0x61
	GateSourceStartSetting     Command = 0x65
	Revision                   Command = 0x70
	GetStatus                  Command = 0x71
	AutoMeasurementVCOM        Command = 0x80
	ReadVCOMValue              Command = 0x81
	VCOMDCSetting              Command = 0x82
	PartialWindow              Command = 0x90
	PartialIn                  Command = 0x91
	PartialOut                 Command = 0x92
	ProgramMode                Command = 0xA0
	ActiveProgramming          Command = 0xA1
	ReadOTP                    Command = 0xA2
	CascadeSetting             Command = 0xE0
	PowerSaving                Command = 0xE3
	LVDVoltageSelect           Command = 0xE4
	ForceTemperature           Command = 0xE5
	TemperatureBoundryPhaseC2  Command = 0xE7
)

var commandNames = map[Command]string{
	PanelSettings:              "panel-settings",
	PowerSettings:              "power-settings",
	PowerOff:                   "power-off",
	PowerOffSequenceSettings:   "power-off-sequence-settings",
	PowerOn:                    "power-on",
	PowerOnMeasures:            "power-on-measures",
	BoosterSoftStart:           "booster-soft-start",
	DeepSleep:                  "deep-sleep",
	DisplayStartTransmission1:  "display-start-transmission-1",
	DataStop:                   "data-stop",
	DisplayRefresh:             "display-refresh",
	DisplayStartTransmission2:  "display-start-transmission-2",
	DualSPI:                    "dual-spi",
	LutVcom:                    "lut-vcom",
	LutBlue:                    "lut-blue",
	LutWhite:                   "lut-white",
	LutGray1:                   "lut-gray-1",
	LutGray2:                   "lut-gray-2",
	KWLUOption:                 "kwlu-option",
	PLLControl:                 "pll-control",
	TemperatureSensorCalib:     "temperature-sensor-calibration",
	TemperatureSensorSelection: "temperature-sensor-selection",
	TemperatureSensorWrite:     "temperature-sensor-write",
	TemperatureSensorRead:      "temperature-sensor-read",
	PanelBreakCheck:            "panel-break-check",
	VCOMDataIntervalSetting:    "vcom-data-interval-setting",
	LowPowerDetection:          "low-power-detection",
	EndVoltageSetting:          "end-voltage-setting",
	TCONSetting:                "tcon-setting",
	ResolutionSetting:          "resolution-setting",
	GateSourceStartSetting:     "gate-source-start-setting",
	Revision:                   "revision",
	GetStatus:                  "get-status",
	AutoMeasurementVCOM:        "auto-measurement-vcom",
	ReadVCOMValue:              "read-vcom-value",
	VCOMDCSetting:              "vcom-dc-setting",
	PartialWindow:              "partial-window",
	PartialIn:                  "partial-in",
	PartialOut:                 "partial-out",
	ProgramMode:                "program-mode",
	ActiveProgramming:          "active-programming",
	ReadOTP:                    "read-otp",
	CascadeSetting:             "cascade-setting",
	PowerSaving:                "power-saving",
	LVDVoltageSelect:           "lvd-voltage-select",
	ForceTemperature:           "force-temperature",
	TemperatureBoundryPhaseC2:  "temperature-boundry-phase-c2",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%#02x)", uint8(c))
}
