package state

import (
	"time"

	"inliner/common"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:  time.Now(),
		Format: common.OutputFmtHtml,
	}
}
