package gateway

import (
	"encoding/json"
	"fmt"
)

// decodeParams re-marshals a generically-decoded params value (already
// interface{} from the outer JSON frame) into T, since RequestData.Params
// arrives as map[string]interface{} rather than the concrete param type.
func decodeParams[T any](raw interface{}) (T, error) {
	var out T
	if raw == nil {
		return out, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return out, fmt.Errorf("gateway: encode params: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("gateway: decode params: %w", err)
	}
	return out, nil
}
