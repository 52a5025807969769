package state

import (
	"time"

	"go.uber.org/zap"
)

// newLocalEnv starts with silent logger, real one is installed as soon as
// configuration is loaded.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		Log:     zap.NewNop(),
		started: time.Now(),
	}
}
