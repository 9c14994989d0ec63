package catalog

import (
	"context"
	"strings"
)

// mockStore serves JSON documents from an in-memory map keyed by storage key.
type mockStore struct {
	docs    map[string]string
	scanErr error
	getErr  error
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockStore) JSONGetMulti(_ context.Context, keys []string, _ string) ([][]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if doc, ok := m.docs[k]; ok {
			out[i] = []byte("[" + doc + "]")
		}
	}
	return out, nil
}
