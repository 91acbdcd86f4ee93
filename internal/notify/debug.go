package notify

import (
	"log"
	"os"
	"strings"
)

var notifyDebugEnabled = strings.EqualFold(os.Getenv("SITSMART_NOTIFY_DEBUG"), "1")

func debugLog(format string, args ...interface{}) {
	if notifyDebugEnabled {
		log.Printf(format, args...)
	}
}
