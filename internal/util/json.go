package util

import (
	"encoding/json"
	"fmt"
)

// MarshalCompact renders v as compact JSON, falling back to the fmt verb on
// encoding failure so callers never have to branch.
func MarshalCompact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(data)
}
