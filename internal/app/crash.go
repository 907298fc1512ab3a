package app

import (
	"sync"
	"sync/atomic"

	"github.com/bft-labs/puppetlink/internal/domain"
)

// CrashInfo describes why the workers were torn down.
type CrashInfo struct {
	// Role is the role whose worker died, with a "_timeout" or
	// "_protocol" suffix when it was declared dead by the host.
	Role     string
	ExitCode int
	Status   domain.ExitStatus
}

// CrashCallback is invoked after an abnormal teardown.
type CrashCallback func(CrashInfo)

// crashSlot holds the crash callback. Set can be called from any goroutine
// while Invoke is running; invocations are serialised.
type crashSlot struct {
	fn atomic.Pointer[CrashCallback]
	mu sync.Mutex
}

func (s *crashSlot) Set(fn CrashCallback) {
	if fn == nil {
		s.fn.Store(nil)
		return
	}
	s.fn.Store(&fn)
}

func (s *crashSlot) Invoke(info CrashInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn := s.fn.Load()
	if fn == nil {
		return false
	}
	(*fn)(info)
	return true
}
