package devicemgr

import (
	"encoding/json"

	"github.com/p4lang/pi4go/pkg/p4rt"
)

// wireDeviceConfig is the on-wire shape of the §6.4 device_config_bytes
// framing. Unknown fields are ignored by json.Unmarshal, matching the
// spec's "unknown fields are ignored" requirement.
type wireDeviceConfig struct {
	DeviceData []byte            `json:"device_data"`
	Reassign   bool              `json:"reassign"`
	Extras     map[string]string `json:"extras"`
}

// decodeDeviceConfig parses the framed device_config_bytes payload. A
// malformed payload is the caller's cue to return INVALID_ARGUMENT.
func decodeDeviceConfig(raw []byte) (p4rt.DeviceConfig, error) {
	var w wireDeviceConfig
	if err := json.Unmarshal(raw, &w); err != nil {
		return p4rt.DeviceConfig{}, err
	}
	return p4rt.DeviceConfig{
		DeviceData: w.DeviceData,
		Reassign:   w.Reassign,
		Extras:     w.Extras,
	}, nil
}

// EncodeDeviceConfig produces the wire framing for cfg. Exported for tests
// and client tooling that need to construct a ForwardingPipelineConfig.
func EncodeDeviceConfig(cfg p4rt.DeviceConfig) ([]byte, error) {
	return json.Marshal(wireDeviceConfig{
		DeviceData: cfg.DeviceData,
		Reassign:   cfg.Reassign,
		Extras:     cfg.Extras,
	})
}
