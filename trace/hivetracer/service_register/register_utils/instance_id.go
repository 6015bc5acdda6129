package register_utils

import (
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

var (
	instanceIdOnce sync.Once
	instanceId     string
)

// GetInstanceID returns the per-process instance id: a random uuid rendered
// as 32 hex chars, generated once and shared by every component that tags
// data with process identity (register heartbeat, stream frame tags).
func GetInstanceID() string {
	instanceIdOnce.Do(func() {
		u, err := uuid.NewRandom()
		if err != nil {
			// crypto/rand failed; a zero id still identifies the process
			// uniquely enough within one agent together with pid+start_time
			u = uuid.UUID{}
		}
		instanceId = hex.EncodeToString(u[:])
	})
	return instanceId
}
