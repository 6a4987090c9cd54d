// Package keypad implements the 16-key hexadecimal keypad.
package keypad

import "sync"

// ReleaseFunc is called with the key value whenever a key goes up.
type ReleaseFunc func(key uint8)

// Keypad tracks which of the 16 keys are held. Hosts feed it press and
// release events; the machine polls IsPressed.
type Keypad struct {
	mu        sync.Mutex
	down      [16]bool
	onRelease ReleaseFunc
}

func New() *Keypad {
	return &Keypad{}
}

// OnRelease sets the listener told about every key release.
func (k *Keypad) OnRelease(fn ReleaseFunc) {
	k.mu.Lock()
	k.onRelease = fn
	k.mu.Unlock()
}

// Press marks key as held.
func (k *Keypad) Press(key uint8) {
	k.mu.Lock()
	k.down[key&0x0F] = true
	k.mu.Unlock()
}

// Release marks key as up and notifies the release listener. Releasing a key
// that is not held is ignored.
func (k *Keypad) Release(key uint8) {
	key &= 0x0F
	k.mu.Lock()
	wasDown := k.down[key]
	k.down[key] = false
	fn := k.onRelease
	k.mu.Unlock()

	if wasDown && fn != nil {
		fn(key)
	}
}

// IsPressed reports whether key is held.
func (k *Keypad) IsPressed(key uint8) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.down[key&0x0F]
}

// ReleaseAll lets go of every held key, notifying the listener for each.
func (k *Keypad) ReleaseAll() {
	for key := uint8(0); key < 16; key++ {
		k.Release(key)
	}
}

// Held returns the keys currently down, lowest first.
func (k *Keypad) Held() []uint8 {
	k.mu.Lock()
	defer k.mu.Unlock()
	var keys []uint8
	for key, down := range k.down {
		if down {
			keys = append(keys, uint8(key))
		}
	}
	return keys
}
