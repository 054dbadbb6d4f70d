package ipc

import (
	"sync"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/Trinoooo/eggie_ipc/logs"
	"github.com/Trinoooo/eggie_ipc/utils"
	"go.uber.org/zap"
)

var (
	serverEvents = []EventName{EventConnection, EventListening}
	connEvents   = []EventName{EventData, EventClose, EventError}
)

// emitter 按注册顺序调用 handler，同一个事件可以注册多个 handler。
// 不认识的事件名静默忽略。
type emitter struct {
	mu       sync.RWMutex
	allowed  map[EventName]struct{}
	handlers map[EventName][]HandlerFunc
	logger   *logs.ComponentLogger
}

func newEmitter(logger *logs.ComponentLogger, names ...EventName) *emitter {
	e := &emitter{
		allowed:  make(map[EventName]struct{}, len(names)),
		handlers: make(map[EventName][]HandlerFunc, len(names)),
		logger:   logger,
	}
	for _, name := range names {
		e.allowed[name] = struct{}{}
	}
	return e
}

func (e *emitter) on(name EventName, fn HandlerFunc) {
	if fn == nil {
		return
	}
	if _, ok := e.allowed[name]; !ok {
		e.logger.Debug("ignore unsupported event", zap.String(consts.LogFieldEvent, string(name)))
		return
	}

	e.mu.Lock()
	e.handlers[name] = append(e.handlers[name], fn)
	e.mu.Unlock()
	e.logger.Debug("event registered", zap.String(consts.LogFieldEvent, string(name)))
}

func (e *emitter) emit(evt *Event) {
	var fns []HandlerFunc
	utils.WrapRLock(&e.mu, func() {
		fns = e.handlers[evt.Name]
	})

	for _, fn := range fns {
		fn(evt)
	}
}

func (e *emitter) count(name EventName) int {
	var n int
	utils.WrapRLock(&e.mu, func() {
		n = len(e.handlers[name])
	})
	return n
}
