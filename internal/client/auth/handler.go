package auth

import (
	"sync"
	"sync/atomic"

	"github.com/iudanet/accswitch/internal/models"
)

// Dispatcher выполняет callback в потоке, которому принадлежит UI.
// По умолчанию callback выполняется сразу в потоке flow.
type Dispatcher func(fn func())

// Inline вызывает fn в текущей горутине
func Inline(fn func()) { fn() }

// Handler получает прогресс flow
type Handler interface {
	// Stage сообщает о переходе в новую стадию. Может вызываться много раз.
	// Для open_browser args[0] - адрес страницы входа, для device_code_requested - models.DeviceCode.
	Stage(stage models.Stage, args ...any)
	// Error вызывается не больше одного раза и никогда вместе с Success
	Error(err error)
	// Cancelled опрашивается перед каждым шагом с побочными эффектами
	Cancelled() bool
}

// CreateHandler получает результат добавления аккаунта
type CreateHandler interface {
	Handler
	Success(acc *models.AccountCredential)
}

// LoginHandler получает результат входа
type LoginHandler interface {
	Handler
	Success(res *LoginResult)
}

// notifier гарантирует, что Success или Error будет вызван ровно один раз
type notifier[T any] struct {
	handler  Handler
	success  func(T)
	dispatch Dispatcher
	once     sync.Once
	finished atomic.Bool
}

func newNotifier[T any](h Handler, success func(T), dispatch Dispatcher) *notifier[T] {
	if dispatch == nil {
		dispatch = Inline
	}
	return &notifier[T]{handler: h, success: success, dispatch: dispatch}
}

func (n *notifier[T]) stage(stage models.Stage, args ...any) {
	if n.finished.Load() {
		return
	}
	n.dispatch(func() { n.handler.Stage(stage, args...) })
}

func (n *notifier[T]) ok(v T) {
	n.once.Do(func() {
		n.finished.Store(true)
		n.dispatch(func() { n.success(v) })
	})
}

func (n *notifier[T]) fail(err error) {
	n.once.Do(func() {
		n.finished.Store(true)
		n.dispatch(func() { n.handler.Error(err) })
	})
}

// discard закрывает notifier без вызова Success и Error
func (n *notifier[T]) discard() {
	n.once.Do(func() {
		n.finished.Store(true)
	})
}

func (n *notifier[T]) cancelled() bool {
	return n.handler.Cancelled()
}
