package mpu6050

import (
	"encoding/json"

	"github.com/robotalks/periph.go/pkg/recovery"
)

// Sample is the latest scaled inertial measurement: acceleration in g
// and angular rate in degrees/second. All six axes are updated
// together, by a fully successful read.
type Sample struct {
	AccelX float64        `json:"accel_x"`
	AccelY float64        `json:"accel_y"`
	AccelZ float64        `json:"accel_z"`
	GyroX  float64        `json:"gyro_x"`
	GyroY  float64        `json:"gyro_y"`
	GyroZ  float64        `json:"gyro_z"`
	State  recovery.State `json:"state"`
}

// JSON renders the sample for an external reporting layer.
func (s Sample) JSON() ([]byte, error) {
	return json.Marshal(s)
}
