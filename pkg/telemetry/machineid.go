package telemetry

import (
	"github.com/denisbrodbeck/machineid"
)

// MachineID returns the stable unique identifier of this device,
// used as the default device id in telemetry topics. It panics when
// the platform cannot provide one.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		panic(err)
	}
	return id
}
