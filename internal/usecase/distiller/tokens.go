package distiller

import (
	"encoding/json"
	"math"
)

// estimateTokens is advisory: serialized length times a fixed factor.
func estimateTokens(v any, factor float64) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int(math.Ceil(float64(len(data)) * factor))
}
