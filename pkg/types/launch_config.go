package types

import (
	"encoding/json"
	"fmt"
)

const imageUUIDKey = "imageUuid"

// LaunchConfig is the container configuration of a service.
//
// Only the image is modelled. Every other member is kept as raw JSON so an
// upgrade sends the configuration back exactly as it was read.
type LaunchConfig struct {
	ImageUUID string

	fields map[string]json.RawMessage
}

// Field returns the raw JSON of a member that is not modelled explicitly
func (lc *LaunchConfig) Field(key string) (json.RawMessage, bool) {
	v, ok := lc.fields[key]
	return v, ok
}

// Len returns the number of members the configuration serializes to
func (lc *LaunchConfig) Len() int {
	n := len(lc.fields)
	if lc.ImageUUID != "" {
		n++
	}
	return n
}

func (lc *LaunchConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	lc.ImageUUID = ""
	if v, ok := raw[imageUUIDKey]; ok {
		if err := json.Unmarshal(v, &lc.ImageUUID); err != nil {
			return fmt.Errorf("invalid %s: %w", imageUUIDKey, err)
		}
		delete(raw, imageUUIDKey)
	}

	lc.fields = raw
	return nil
}

func (lc LaunchConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(lc.fields)+1)
	for k, v := range lc.fields {
		out[k] = v
	}

	if lc.ImageUUID != "" {
		image, err := json.Marshal(lc.ImageUUID)
		if err != nil {
			return nil, err
		}
		out[imageUUIDKey] = image
	}

	return json.Marshal(out)
}
