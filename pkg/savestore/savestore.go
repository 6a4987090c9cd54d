// Package savestore keeps save-state slots in memory and syncs them to a
// host directory, one file per slot.
package savestore

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// MaxStoreBytes caps the combined size of all slots.
const MaxStoreBytes = 1 << 20

// FileExt is appended to a slot name to form its host file name.
const FileExt = ".c8s"

var validSlotName = regexp.MustCompile(`^[a-zA-Z0-9_]{1,16}$`)

var (
	ErrSlotNotFound    = errors.New("save slot not found")
	ErrInvalidSlotName = errors.New("invalid save slot name")
	ErrQuotaExceeded   = errors.New("save store quota exceeded")
)

type Slot struct {
	Data     []byte
	Created  time.Time
	Modified time.Time
}

// Store is an in-memory set of named save slots.
type Store struct {
	Mu         sync.RWMutex
	Slots      map[string]*Slot
	DirtySlots map[string]bool
	UsedBytes  int
	Dirty      bool
}

func New() *Store {
	return &Store{
		Slots:      make(map[string]*Slot),
		DirtySlots: make(map[string]bool),
	}
}

// Write stores a copy of data under name, replacing any previous contents.
func (s *Store) Write(name string, data []byte) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if !validSlotName.MatchString(name) {
		return ErrInvalidSlotName
	}

	oldSize := 0
	slot, ok := s.Slots[name]
	if ok {
		oldSize = len(slot.Data)
	}

	newSize := len(data)
	if s.UsedBytes-oldSize+newSize > MaxStoreBytes {
		return ErrQuotaExceeded
	}

	buf := make([]byte, newSize)
	copy(buf, data)

	now := time.Now()
	if !ok {
		slot = &Slot{Created: now}
		s.Slots[name] = slot
	}
	slot.Data = buf
	slot.Modified = now

	s.DirtySlots[name] = true
	s.UsedBytes += newSize - oldSize
	s.Dirty = true
	return nil
}

// Read returns the contents of slot name.
func (s *Store) Read(name string) ([]byte, error) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	if !validSlotName.MatchString(name) {
		return nil, ErrInvalidSlotName
	}
	slot, ok := s.Slots[name]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return slot.Data, nil
}

func (s *Store) Delete(name string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if !validSlotName.MatchString(name) {
		return ErrInvalidSlotName
	}
	slot, ok := s.Slots[name]
	if !ok {
		return ErrSlotNotFound
	}

	s.UsedBytes -= len(slot.Data)
	delete(s.Slots, name)
	// the host file goes on the next persist
	s.DirtySlots[name] = true
	s.Dirty = true
	return nil
}

// List returns the slot names in sorted order.
func (s *Store) List() []string {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	names := make([]string, 0, len(s.Slots))
	for name := range s.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Modified returns when slot name was last written.
func (s *Store) Modified(name string) (time.Time, error) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	slot, ok := s.Slots[name]
	if !ok {
		return time.Time{}, ErrSlotNotFound
	}
	return slot.Modified, nil
}

// LoadFrom reads every slot file in dir. A missing directory is not an
// error. Files that are not slot files are skipped.
func (s *Store) LoadFrom(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	s.Mu.Lock()
	defer s.Mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), FileExt)
		if !ok || !validSlotName.MatchString(name) {
			continue
		}

		full := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(full)
		if err != nil {
			continue
		}

		slot := &Slot{Data: raw, Created: time.Now(), Modified: time.Now()}
		if info, err := entry.Info(); err == nil {
			slot.Created = info.ModTime()
			slot.Modified = info.ModTime()
		}

		if old, ok := s.Slots[name]; ok {
			s.UsedBytes -= len(old.Data)
		}
		s.Slots[name] = slot
		s.UsedBytes += len(raw)
	}
	return nil
}

// PersistTo writes dirty slots to dir and removes files of deleted slots.
// It returns the first error encountered; failed slots stay dirty.
func (s *Store) PersistTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	s.Mu.Lock()
	snapshot := make(map[string]Slot)
	var deleted []string
	for name := range s.DirtySlots {
		if slot, ok := s.Slots[name]; ok {
			buf := make([]byte, len(slot.Data))
			copy(buf, slot.Data)
			snapshot[name] = Slot{Data: buf, Created: slot.Created, Modified: slot.Modified}
		} else {
			deleted = append(deleted, name)
		}
		delete(s.DirtySlots, name)
	}
	s.Dirty = false
	s.Mu.Unlock()

	var firstErr error
	for _, name := range deleted {
		err := os.Remove(filepath.Join(dir, name+FileExt))
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}

	for name, slot := range snapshot {
		path := filepath.Join(dir, name+FileExt)
		if err := os.WriteFile(path, slot.Data, 0644); err != nil {
			s.Mu.Lock()
			s.DirtySlots[name] = true
			s.Dirty = true
			s.Mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		_ = os.Chtimes(path, time.Now(), slot.Modified)
	}
	return firstErr
}

// IsDirty reports whether there are changes not yet persisted.
func (s *Store) IsDirty() bool {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.Dirty
}
