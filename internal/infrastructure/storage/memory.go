package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	transferenciaapp "github.com/finanzas/liquidaciones/internal/application/transferencia"
)

var _ transferenciaapp.ReceiptStorage = (*MemoryReceiptStorage)(nil)

// MemoryReceiptStorage keeps receipts in process memory. Used in development
// and tests where no object store is running.
type MemoryReceiptStorage struct {
	// BaseURL prefixes the generated download links.
	BaseURL string

	mu      sync.RWMutex
	objects map[string]storedObject
}

type storedObject struct {
	data        []byte
	contentType string
}

// NewMemoryReceiptStorage creates an empty store.
func NewMemoryReceiptStorage(baseURL string) *MemoryReceiptStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/storage"
	}
	return &MemoryReceiptStorage{BaseURL: baseURL, objects: make(map[string]storedObject)}
}

func (m *MemoryReceiptStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[storageKey] = storedObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (m *MemoryReceiptStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, storageKey)
	return nil
}

func (m *MemoryReceiptStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	m.mu.RLock()
	_, ok := m.objects[storageKey]
	m.mu.RUnlock()
	if !ok {
		return "", time.Time{}, fmt.Errorf("object %s not found", storageKey)
	}
	expiresAt := time.Now().Add(expiresIn)
	link := m.BaseURL + "/" + storageKey + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
	return link, expiresAt, nil
}

// Object returns a stored file and its content type.
func (m *MemoryReceiptStorage) Object(storageKey string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[storageKey]
	return obj.data, obj.contentType, ok
}
