package output

import "webagent/internal/domain/entity"

// Telemetry counters only ever grow and may be read at any time.
type Telemetry interface {
	ObserveDistill(mode entity.DistillMode, elements int)
	ObserveAction(action entity.ActionType, success bool)
	ObserveTokens(n int)
	ObserveSubtask(success bool, code entity.ErrorCode)
}
