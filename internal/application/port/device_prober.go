package port

import (
	"context"
	"time"
)

// ProbeResult describes one reachability check of the device.
type ProbeResult struct {
	Reachable  bool          `json:"reachable"`
	ICMP       bool          `json:"icmp"`
	HTTPStatus int           `json:"httpStatus"`
	Latency    time.Duration `json:"latency"`
}

// DeviceProber checks that the device answers before the shell loads it.
type DeviceProber interface {
	Probe(ctx context.Context, host, targetURL string) (ProbeResult, error)
}

// DeviceAllowlist decides which device hosts the kiosk may contact on the user's behalf.
type DeviceAllowlist interface {
	Allowed(ctx context.Context, host string) bool
}
