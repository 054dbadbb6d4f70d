package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter(t *testing.T) {
	e := newEmitter(ipcLogger, EventData, EventClose)

	var order []int
	e.on(EventData, func(evt *Event) { order = append(order, 1) })
	e.on(EventData, func(evt *Event) { order = append(order, 2) })
	e.on(EventData, nil)
	e.on(EventConnection, func(evt *Event) { order = append(order, 99) })

	assert.Equal(t, 2, e.count(EventData))
	assert.Equal(t, 0, e.count(EventConnection))

	e.emit(&Event{Name: EventData})
	e.emit(&Event{Name: EventConnection})
	e.emit(&Event{Name: EventClose})
	assert.Equal(t, []int{1, 2}, order)
}

func TestOptions_WithDefaults(t *testing.T) {
	opts := (*Options)(nil).withDefaults()
	assert.Equal(t, DefaultOptions(), opts)

	custom := &Options{Prefix: "/sock", ReadBufferSize: -1}
	filled := custom.withDefaults()
	assert.Equal(t, "/sock", filled.Prefix)
	assert.Equal(t, DefaultOptions().UnixPath, filled.UnixPath)
	assert.Equal(t, DefaultOptions().ReadBufferSize, filled.ReadBufferSize)
	// 原对象不被修改
	assert.Equal(t, -1, custom.ReadBufferSize)
}
