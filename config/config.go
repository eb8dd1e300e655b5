// Package config describes the process configuration: serial link, I2C
// buses, channels and timing.
package config

// Config is the root of the YAML document.
type Config struct {
	Serial   SerialConfig    `yaml:"serial"`
	Buses    []BusConfig     `yaml:"buses"`
	Channels []ChannelConfig `yaml:"channels"`
	Timing   TimingConfig    `yaml:"timing"`
	Intake   IntakeConfig    `yaml:"intake"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Device        string `yaml:"device"`
	Driver        string `yaml:"driver"` // "tarm" or "bugst"
	Baud          int    `yaml:"baud"`
	DataBits      int    `yaml:"data_bits"`
	StopBits      int    `yaml:"stop_bits"`
	Parity        string `yaml:"parity"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- BUS ----

type BusConfig struct {
	ID          uint8  `yaml:"id"`
	Device      string `yaml:"device"` // e.g. /dev/i2c-1
	FrequencyHz uint32 `yaml:"frequency_hz"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

// ---- CHANNEL ----

type ChannelConfig struct {
	Label   string `yaml:"label"` // single band letter
	Bus     uint8  `yaml:"bus"`
	Address uint8  `yaml:"address"`
}

// ---- TIMING ----

type TimingConfig struct {
	SettleMs         *int `yaml:"settle_ms"`
	PowerStabilizeMs *int `yaml:"power_stabilize_ms"`
}

// ---- INTAKE ----

type IntakeConfig struct {
	LineMax    int `yaml:"line_max"`
	QueueDepth int `yaml:"queue_depth"`
}
