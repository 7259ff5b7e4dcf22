// SPDX-License-Identifier: MPL-2.0

package source

import "sync"

// Virtual is a Source held in memory.
type Virtual struct {
	identity

	contentMu sync.RWMutex
	content   []byte
}

// NewVirtual returns an in-memory Source at path under root.
func NewVirtual(path, root string, content []byte) *Virtual {
	v := &Virtual{content: content}
	v.init(path, root)
	return v
}

func (v *Virtual) ReadBytes() ([]byte, error) {
	v.contentMu.RLock()
	defer v.contentMu.RUnlock()
	out := make([]byte, len(v.content))
	copy(out, v.content)
	return out, nil
}

func (v *Virtual) Read() (string, error) {
	v.contentMu.RLock()
	defer v.contentMu.RUnlock()
	return string(v.content), nil
}

func (v *Virtual) Write(data []byte) error {
	v.contentMu.Lock()
	defer v.contentMu.Unlock()
	v.content = append([]byte(nil), data...)
	return nil
}

func (v *Virtual) ContentHash() (string, error) {
	v.contentMu.RLock()
	defer v.contentMu.RUnlock()
	return ContentHash(v.content), nil
}
