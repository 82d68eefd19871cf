package mq

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProcIndexEnv is the worker-slot variable set by the process supervisor.
const ProcIndexEnv = "EVENTPLANE_PROC_INDEX"

// ProcessIndex returns this process's worker-slot index, or 0 when unset.
func ProcessIndex() int {
	if v := os.Getenv(ProcIndexEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

// ConsumerID derives the stable consumer identity for this process slot:
// sha1(node id or hostname) + ":" + sha1(binary path) + ":" + process index.
// Restarts of the same slot produce the same id, which keeps autoclaim
// reclaiming the slot's own pending entries across restarts.
func ConsumerID(nodeID string, procIdx int) string {
	if nodeID == "" {
		if host, err := os.Hostname(); err == nil {
			nodeID = host
		} else {
			nodeID = "localhost"
		}
	}
	binPath, err := os.Executable()
	if err != nil {
		binPath = os.Args[0]
	}
	return sha1hex(nodeID) + ":" + sha1hex(binPath) + ":" + strconv.Itoa(procIdx)
}

func sha1hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// warnThrottle rate-limits repeated reader-loop warnings to one per window
// so a flapping engine does not flood the logs.
type warnThrottle struct {
	mu   sync.Mutex
	last time.Time
}

const warnInterval = 10 * time.Second

func (w *warnThrottle) Warn(logger *zap.Logger, msg, stream string, err error) {
	w.mu.Lock()
	now := time.Now()
	ok := now.Sub(w.last) >= warnInterval
	if ok {
		w.last = now
	}
	w.mu.Unlock()
	if ok {
		logger.Warn(msg, zap.String("stream", stream), zap.Error(err))
	}
}
