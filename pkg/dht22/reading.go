package dht22

import (
	"encoding/json"

	"github.com/robotalks/periph.go/pkg/recovery"
)

// Reading is the latest decoded sensor output. Physical fields are
// updated only together, by a fully verified read.
type Reading struct {
	Humidity     float64        `json:"humidity"`
	TemperatureC float64        `json:"temperature_c"`
	TemperatureF float64        `json:"temperature_f"`
	State        recovery.State `json:"state"`
}

// JSON renders the reading for an external reporting layer.
func (r Reading) JSON() ([]byte, error) {
	return json.Marshal(r)
}
