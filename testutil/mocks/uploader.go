package mocks

import (
	"context"
	"sync"
)

// MockUploader records uploads and returns "<base>/<remote>" URLs.
type MockUploader struct {
	mu sync.Mutex

	base  string
	fails map[string]error

	uploads map[string]string // remote -> local
}

// NewMockUploader 创建 MockUploader
func NewMockUploader(base string) *MockUploader {
	return &MockUploader{
		base:    base,
		fails:   map[string]error{},
		uploads: map[string]string{},
	}
}

// FailOn makes uploads to remotePath return err.
func (m *MockUploader) FailOn(remotePath string, err error) *MockUploader {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[remotePath] = err
	return m
}

// Upload implements storage.Uploader.
func (m *MockUploader) Upload(_ context.Context, localPath, remotePath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fails[remotePath]; err != nil {
		return "", err
	}
	m.uploads[remotePath] = localPath
	return m.base + "/" + remotePath, nil
}

// Uploads returns a copy of remote -> local paths uploaded so far.
func (m *MockUploader) Uploads() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.uploads))
	for k, v := range m.uploads {
		out[k] = v
	}
	return out
}
