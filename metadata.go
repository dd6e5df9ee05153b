package flagcore

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
)

const (
	sdkType    = "go-core"
	sdkVersion = "0.1.0"
)

var sessionOnce sync.Once
var sessionID string

// SessionID returns a process-lifetime-stable identifier, generated
// once on first use and reused for every diagnostics marker and
// exception report the process emits.
func SessionID() string {
	sessionOnce.Do(func() {
		sessionID = uuid.NewString()
	})
	return sessionID
}

// Metadata is stamped onto every outbound exception report so the
// receiving side can tell which SDK, version, and runtime produced it.
type Metadata struct {
	SDKType         string `json:"sdkType"`
	SDKVersion      string `json:"sdkVersion"`
	LanguageVersion string `json:"languageVersion"`
	SessionID       string `json:"sessionID"`
}

func currentMetadata() Metadata {
	return Metadata{
		SDKType:         sdkType,
		SDKVersion:      sdkVersion,
		LanguageVersion: runtime.Version(),
		SessionID:       SessionID(),
	}
}
