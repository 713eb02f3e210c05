package memory

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedLock serializes work per session id without a lock per session.
// Distinct sessions may share a stripe; that only costs contention.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (l *stripedLock) lock(sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
