package index

import (
	"sync"
)

// BinaryLoader reconstructs an index from the bytes produced by its
// MarshalBinary method.
type BinaryLoader func(data []byte) (Index, error)

var (
	binaryLoaderMu sync.RWMutex
	binaryLoaders  = map[Kind]BinaryLoader{}
)

// RegisterBinaryLoader registers a loader for a specific index kind.
//
// Index implementations call this from an init() function.
func RegisterBinaryLoader(kind Kind, loader BinaryLoader) {
	binaryLoaderMu.Lock()
	defer binaryLoaderMu.Unlock()
	binaryLoaders[kind] = loader
}

// UnmarshalBinary decodes an index of the given kind.
// The implementing package must have been imported so its loader is registered.
func UnmarshalBinary(kind Kind, data []byte) (Index, error) {
	binaryLoaderMu.RLock()
	loader, ok := binaryLoaders[kind]
	binaryLoaderMu.RUnlock()
	if !ok {
		return nil, &ErrUnknownKind{Kind: kind}
	}
	return loader(data)
}
