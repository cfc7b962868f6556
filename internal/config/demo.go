package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the checked-in demo defaults file.
const DefaultConfigPath = "config/demo.defaults.json"

// DemoConfig holds the settings shared by the demo runners. Every field is
// optional; the Get* methods fall back to the values the rig was tuned with.
type DemoConfig struct {
	// Sensor board
	SensorAddress          *string  `json:"sensor_address,omitempty"`
	SensorBatteryThreshold *int     `json:"sensor_battery_threshold,omitempty"`
	SensorChannels         []int    `json:"sensor_channels,omitempty"`
	SensorSamplingRate     *int     `json:"sensor_sampling_rate,omitempty"`
	SensorSamplesPerRead   *int     `json:"sensor_samples_per_read,omitempty"`
	SensorTimeout          *string  `json:"sensor_timeout,omitempty"` // duration string like "2s"
	SensorRawMin           *float64 `json:"sensor_raw_min,omitempty"`
	SensorRawMax           *float64 `json:"sensor_raw_max,omitempty"`

	// Quadrotor
	FlyerURI           *string  `json:"flyer_uri,omitempty"`
	FlyerZMin          *float64 `json:"flyer_z_min,omitempty"`
	FlyerZMax          *float64 `json:"flyer_z_max,omitempty"`
	FlyerLEDMin        *float64 `json:"flyer_led_min,omitempty"`
	FlyerLEDMax        *float64 `json:"flyer_led_max,omitempty"`
	FlyerMinDistance   *float64 `json:"flyer_min_distance,omitempty"`
	FlyerMaxSpeed      *float64 `json:"flyer_max_speed,omitempty"`
	FlyerHoverHeight   *float64 `json:"flyer_hover_height,omitempty"`
	FlyerLandingStep   *float64 `json:"flyer_landing_step,omitempty"`
	FlyerLandingPeriod *string  `json:"flyer_landing_period,omitempty"`

	// Run
	RunningTime     *string `json:"running_time,omitempty"`
	ConnectAttempts *int    `json:"connect_attempts,omitempty"`
	ConnectDelay    *string `json:"connect_delay,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultDemoConfig returns a DemoConfig with every field set to its default.
func DefaultDemoConfig() *DemoConfig {
	return &DemoConfig{
		SensorAddress:          ptrString("98:D3:71:FD:63:15"),
		SensorBatteryThreshold: ptrInt(30),
		SensorChannels:         []int{0},
		SensorSamplingRate:     ptrInt(100),
		SensorSamplesPerRead:   ptrInt(16),
		SensorTimeout:          ptrString("2s"),
		SensorRawMin:           ptrFloat64(0),
		SensorRawMax:           ptrFloat64(1024),

		FlyerURI:           ptrString("radio://0/80/2M"),
		FlyerZMin:          ptrFloat64(0.5),
		FlyerZMax:          ptrFloat64(1.2),
		FlyerLEDMin:        ptrFloat64(0),
		FlyerLEDMax:        ptrFloat64(100),
		FlyerMinDistance:   ptrFloat64(0.8),
		FlyerMaxSpeed:      ptrFloat64(0.8),
		FlyerHoverHeight:   ptrFloat64(0.5),
		FlyerLandingStep:   ptrFloat64(0.05),
		FlyerLandingPeriod: ptrString("100ms"),

		RunningTime:     ptrString("16s"),
		ConnectAttempts: ptrInt(10),
		ConnectDelay:    ptrString("0s"),
	}
}

// LoadDemoConfig loads a DemoConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the file keep their defaults through the Get* methods.
func LoadDemoConfig(path string) (*DemoConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &DemoConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields that are set, and that the remap intervals the
// effective values produce are usable.
func (c *DemoConfig) Validate() error {
	durations := map[string]*string{
		"sensor_timeout":       c.SensorTimeout,
		"flyer_landing_period": c.FlyerLandingPeriod,
		"running_time":         c.RunningTime,
		"connect_delay":        c.ConnectDelay,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}

	if c.SensorSamplesPerRead != nil && *c.SensorSamplesPerRead <= 0 {
		return fmt.Errorf("sensor_samples_per_read must be positive, got %d", *c.SensorSamplesPerRead)
	}
	if c.SensorSamplingRate != nil && *c.SensorSamplingRate <= 0 {
		return fmt.Errorf("sensor_sampling_rate must be positive, got %d", *c.SensorSamplingRate)
	}
	if c.ConnectAttempts != nil && *c.ConnectAttempts <= 0 {
		return fmt.Errorf("connect_attempts must be positive, got %d", *c.ConnectAttempts)
	}
	if c.SensorBatteryThreshold != nil && (*c.SensorBatteryThreshold < 0 || *c.SensorBatteryThreshold > 63) {
		return fmt.Errorf("sensor_battery_threshold must be between 0 and 63, got %d", *c.SensorBatteryThreshold)
	}
	if c.FlyerLandingStep != nil && *c.FlyerLandingStep <= 0 {
		return fmt.Errorf("flyer_landing_step must be positive, got %f", *c.FlyerLandingStep)
	}
	if c.FlyerMaxSpeed != nil && *c.FlyerMaxSpeed < 0 {
		return fmt.Errorf("flyer_max_speed must be non-negative, got %f", *c.FlyerMaxSpeed)
	}

	// Source intervals are divided by, so they must not collapse.
	if c.GetSensorRawMin() == c.GetSensorRawMax() {
		return fmt.Errorf("sensor_raw_min and sensor_raw_max must differ, both %g", c.GetSensorRawMin())
	}
	if c.GetFlyerMinDistance() <= 0 {
		return fmt.Errorf("flyer_min_distance must be positive, got %f", c.GetFlyerMinDistance())
	}
	if c.GetFlyerZMin() < 0 || c.GetFlyerZMax() < 0 {
		return fmt.Errorf("flyer heights must be non-negative, got [%g, %g]", c.GetFlyerZMin(), c.GetFlyerZMax())
	}

	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetSensorAddress returns the sensor_address value or the default.
func (c *DemoConfig) GetSensorAddress() string {
	if c.SensorAddress == nil {
		return "98:D3:71:FD:63:15"
	}
	return *c.SensorAddress
}

// GetSensorBatteryThreshold returns the sensor_battery_threshold value or the default.
func (c *DemoConfig) GetSensorBatteryThreshold() int {
	if c.SensorBatteryThreshold == nil {
		return 30
	}
	return *c.SensorBatteryThreshold
}

// GetSensorChannels returns the acquisition channels or the default (A1 only).
func (c *DemoConfig) GetSensorChannels() []int {
	if len(c.SensorChannels) == 0 {
		return []int{0}
	}
	return c.SensorChannels
}

// GetSensorSamplingRate returns the sensor_sampling_rate value in Hz or the default.
func (c *DemoConfig) GetSensorSamplingRate() int {
	if c.SensorSamplingRate == nil {
		return 100
	}
	return *c.SensorSamplingRate
}

// GetSensorSamplesPerRead returns the sensor_samples_per_read value or the default.
func (c *DemoConfig) GetSensorSamplesPerRead() int {
	if c.SensorSamplesPerRead == nil {
		return 16
	}
	return *c.SensorSamplesPerRead
}

// GetSensorTimeout parses and returns the SensorTimeout as a time.Duration.
func (c *DemoConfig) GetSensorTimeout() time.Duration {
	return durationOr(c.SensorTimeout, 2*time.Second)
}

// GetSensorRawMin returns the sensor_raw_min value or the default.
func (c *DemoConfig) GetSensorRawMin() float64 {
	if c.SensorRawMin == nil {
		return 0
	}
	return *c.SensorRawMin
}

// GetSensorRawMax returns the sensor_raw_max value or the default.
func (c *DemoConfig) GetSensorRawMax() float64 {
	if c.SensorRawMax == nil {
		return 1024
	}
	return *c.SensorRawMax
}

// GetFlyerURI returns the flyer_uri value or the default.
func (c *DemoConfig) GetFlyerURI() string {
	if c.FlyerURI == nil {
		return "radio://0/80/2M"
	}
	return *c.FlyerURI
}

// GetFlyerZMin returns the flyer_z_min value or the default.
func (c *DemoConfig) GetFlyerZMin() float64 {
	if c.FlyerZMin == nil {
		return 0.5
	}
	return *c.FlyerZMin
}

// GetFlyerZMax returns the flyer_z_max value or the default.
func (c *DemoConfig) GetFlyerZMax() float64 {
	if c.FlyerZMax == nil {
		return 1.2
	}
	return *c.FlyerZMax
}

// GetFlyerLEDMin returns the flyer_led_min value or the default.
func (c *DemoConfig) GetFlyerLEDMin() float64 {
	if c.FlyerLEDMin == nil {
		return 0
	}
	return *c.FlyerLEDMin
}

// GetFlyerLEDMax returns the flyer_led_max value or the default.
func (c *DemoConfig) GetFlyerLEDMax() float64 {
	if c.FlyerLEDMax == nil {
		return 100
	}
	return *c.FlyerLEDMax
}

// GetFlyerMinDistance returns the flyer_min_distance value in metres or the default.
func (c *DemoConfig) GetFlyerMinDistance() float64 {
	if c.FlyerMinDistance == nil {
		return 0.8
	}
	return *c.FlyerMinDistance
}

// GetFlyerMaxSpeed returns the flyer_max_speed value in m/s or the default.
func (c *DemoConfig) GetFlyerMaxSpeed() float64 {
	if c.FlyerMaxSpeed == nil {
		return 0.8
	}
	return *c.FlyerMaxSpeed
}

// GetFlyerHoverHeight returns the flyer_hover_height value or the default.
func (c *DemoConfig) GetFlyerHoverHeight() float64 {
	if c.FlyerHoverHeight == nil {
		return 0.5
	}
	return *c.FlyerHoverHeight
}

// GetFlyerLandingStep returns the flyer_landing_step value or the default.
func (c *DemoConfig) GetFlyerLandingStep() float64 {
	if c.FlyerLandingStep == nil {
		return 0.05
	}
	return *c.FlyerLandingStep
}

// GetFlyerLandingPeriod parses and returns the FlyerLandingPeriod as a time.Duration.
func (c *DemoConfig) GetFlyerLandingPeriod() time.Duration {
	return durationOr(c.FlyerLandingPeriod, 100*time.Millisecond)
}

// GetRunningTime parses and returns the RunningTime as a time.Duration.
func (c *DemoConfig) GetRunningTime() time.Duration {
	return durationOr(c.RunningTime, 16*time.Second)
}

// GetConnectAttempts returns the connect_attempts value or the default.
func (c *DemoConfig) GetConnectAttempts() int {
	if c.ConnectAttempts == nil {
		return 10
	}
	return *c.ConnectAttempts
}

// GetConnectDelay parses and returns the ConnectDelay as a time.Duration.
func (c *DemoConfig) GetConnectDelay() time.Duration {
	return durationOr(c.ConnectDelay, 0)
}
