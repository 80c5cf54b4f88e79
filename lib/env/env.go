package env

import (
	"os"
	"strconv"
)

func Debug() bool {
	return os.Getenv("DEBUG") != ""
}

// SyncTimeoutMS overrides how long a session switch waits for the
// rendering surface to report its state.
func SyncTimeoutMS() (int, bool) {
	if s := os.Getenv("UMLCANVAS_SYNC_TIMEOUT_MS"); s != "" {
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil && i >= 0 {
			return int(i), true
		}
	}
	return -1, false
}
