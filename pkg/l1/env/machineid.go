package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID keys the protected machine ID, so the controller ID doesn't
// leak the raw machine ID onto the broker.
const AppID = "armlink"

// MachineID retrieves the ID identifying this controller. It falls
// back to the hostname when the platform has no machine ID.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
