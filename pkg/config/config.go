// Package config loads the periphd configuration from a YAML file.
// Empty strings disable the optional surfaces; absent driver sections
// keep the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/periph.go/pkg/dht22"
	"github.com/robotalks/periph.go/pkg/mpu6050"
	"github.com/robotalks/periph.go/pkg/pca9685"
)

// Defaults
const (
	DefaultI2CDevice = "/dev/i2c-1"
	DefaultDHT22Pin  = 4
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Config is the full daemon configuration.
type Config struct {
	// DeviceID names this controller in telemetry topics. Empty means
	// derive it from the machine id.
	DeviceID  string          `yaml:"device_id"`
	I2C       I2CConfig       `yaml:"i2c"`
	DHT22     DHT22Config     `yaml:"dht22"`
	MPU6050   MPU6050Config   `yaml:"mpu6050"`
	PCA9685   PCA9685Config   `yaml:"pca9685"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Web       WebConfig       `yaml:"web"`
}

// I2CConfig names the bus device file.
type I2CConfig struct {
	Device string `yaml:"device"`
}

// DHT22Config configures the humidity sensor driver.
type DHT22Config struct {
	Enabled         bool `yaml:"enabled"`
	Pin             int  `yaml:"pin"`
	PollIntervalMS  int  `yaml:"poll_interval_ms"`
	MaxRetries      int  `yaml:"max_retries"`
	RetryIntervalMS int  `yaml:"retry_interval_ms"`
	MaxBackoffMS    int  `yaml:"max_backoff_ms"`
}

// Driver converts to the driver configuration.
func (c DHT22Config) Driver() dht22.Config {
	return dht22.Config{
		PollInterval:  time.Duration(c.PollIntervalMS) * time.Millisecond,
		MaxRetries:    c.MaxRetries,
		RetryInterval: time.Duration(c.RetryIntervalMS) * time.Millisecond,
		MaxBackoff:    time.Duration(c.MaxBackoffMS) * time.Millisecond,
	}
}

// MPU6050Config configures the inertial sensor driver. Range selectors
// index the full-scale tables literally.
type MPU6050Config struct {
	Enabled        bool  `yaml:"enabled"`
	Address        uint8 `yaml:"address"`
	AccelRange     int   `yaml:"accel_range"`
	GyroRange      int   `yaml:"gyro_range"`
	PollIntervalMS int   `yaml:"poll_interval_ms"`
}

// Driver converts to the driver configuration.
func (c MPU6050Config) Driver() mpu6050.Config {
	d := mpu6050.DefaultConfig()
	d.Addr = c.Address
	d.AccelRange = c.AccelRange
	d.GyroRange = c.GyroRange
	d.PollInterval = time.Duration(c.PollIntervalMS) * time.Millisecond
	return d
}

// PCA9685Config configures the servo board registry.
type PCA9685Config struct {
	Enabled bool    `yaml:"enabled"`
	Boards  uint8   `yaml:"boards"`
	PWMFreq float64 `yaml:"pwm_freq"`
}

// Driver converts to the registry configuration.
func (c PCA9685Config) Driver() pca9685.Config {
	return pca9685.Config{PWMFreq: c.PWMFreq}
}

// TelemetryConfig configures the MQTT publisher. An empty URL disables
// it.
type TelemetryConfig struct {
	MQTTURL string `yaml:"mqtt_url"`
}

// RecorderConfig configures reading capture. An empty dir disables it.
type RecorderConfig struct {
	Dir string `yaml:"dir"`
}

// WebConfig configures the status server. An empty listen address
// disables it.
type WebConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		I2C: I2CConfig{Device: DefaultI2CDevice},
		DHT22: DHT22Config{
			Enabled:         true,
			Pin:             DefaultDHT22Pin,
			PollIntervalMS:  int(dht22.DefaultPollInterval / time.Millisecond),
			MaxRetries:      dht22.DefaultMaxRetries,
			RetryIntervalMS: int(dht22.DefaultRetryInterval / time.Millisecond),
			MaxBackoffMS:    int(dht22.DefaultMaxBackoff / time.Millisecond),
		},
		MPU6050: MPU6050Config{
			Enabled:        true,
			Address:        mpu6050.DefaultAddr,
			AccelRange:     3,
			GyroRange:      3,
			PollIntervalMS: int(mpu6050.DefaultPollInterval / time.Millisecond),
		},
		PCA9685: PCA9685Config{
			Enabled: true,
			Boards:  1,
			PWMFreq: pca9685.DefaultPWMFreq,
		},
	}
}

// Load reads the configuration at path over the defaults. An empty
// path returns the defaults untouched.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config: parse %s: %v", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate range-checks the loaded values.
func (c *Config) Validate() error {
	if c.DHT22.Enabled && c.DHT22.Pin < 0 {
		return fmt.Errorf("%w: dht22 pin %d", ErrInvalid, c.DHT22.Pin)
	}
	if c.DHT22.MaxRetries < 0 {
		return fmt.Errorf("%w: dht22 max_retries %d", ErrInvalid, c.DHT22.MaxRetries)
	}
	if c.MPU6050.AccelRange < 0 || c.MPU6050.AccelRange > 3 {
		return fmt.Errorf("%w: mpu6050 accel_range %d", ErrInvalid, c.MPU6050.AccelRange)
	}
	if c.MPU6050.GyroRange < 0 || c.MPU6050.GyroRange > 3 {
		return fmt.Errorf("%w: mpu6050 gyro_range %d", ErrInvalid, c.MPU6050.GyroRange)
	}
	if c.PCA9685.Enabled {
		if c.PCA9685.Boards == 0 {
			return fmt.Errorf("%w: pca9685 boards 0", ErrInvalid)
		}
		if c.PCA9685.PWMFreq <= 0 {
			return fmt.Errorf("%w: pca9685 pwm_freq %v", ErrInvalid, c.PCA9685.PWMFreq)
		}
	}
	for _, iv := range []struct {
		name string
		ms   int
	}{
		{"dht22 poll_interval_ms", c.DHT22.PollIntervalMS},
		{"dht22 retry_interval_ms", c.DHT22.RetryIntervalMS},
		{"dht22 max_backoff_ms", c.DHT22.MaxBackoffMS},
		{"mpu6050 poll_interval_ms", c.MPU6050.PollIntervalMS},
	} {
		if iv.ms < 0 {
			return fmt.Errorf("%w: %s %d", ErrInvalid, iv.name, iv.ms)
		}
	}
	return nil
}
