package utils

import "sync"

func WrapLock(lock *sync.Mutex, fn func()) {
	lock.Lock()
	defer lock.Unlock()

	fn()
}

func WrapRLock(lock *sync.RWMutex, fn func()) {
	lock.RLock()
	defer lock.RUnlock()

	fn()
}
