package auth

import (
	"io"
	"sync"
)

// Flow - запущенная попытка добавления или входа
type Flow struct {
	session *Session
	done    chan struct{}
	stop    chan struct{}
	closers []io.Closer
	mu      sync.Mutex
	stopped bool
}

func newFlow(session *Session) *Flow {
	return &Flow{
		session: session,
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

// Session возвращает сессию flow
func (f *Flow) Session() *Session {
	return f.session
}

// Done закрывается, когда flow завершен любым способом
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// Cancel отменяет flow: listener и poller закрываются, результат текущего шага отбрасывается.
// Повторный вызов ничего не делает.
func (f *Flow) Cancel() {
	f.session.Cancel()

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	close(f.stop)
	closers := f.closers
	f.closers = nil
	f.mu.Unlock()

	for _, c := range closers {
		_ = c.Close()
	}
}

// track закрывает c при отмене flow
func (f *Flow) track(c io.Closer) {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		_ = c.Close()
		return
	}
	f.closers = append(f.closers, c)
	f.mu.Unlock()
}
