package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/Sternrassler/tiercache/pkg/coldstore"
)

// FaultyStore wraps a cold store and fails selected operations by object name.
type FaultyStore struct {
	coldstore.Store

	mu            sync.Mutex
	uploadErrs    map[string]error
	downloadErrs  map[string]error
	listErr       error
	uploadCalls   map[string]int
	downloadCalls map[string]int
}

// NewFaultyStore wraps inner with no faults configured.
func NewFaultyStore(inner coldstore.Store) *FaultyStore {
	return &FaultyStore{
		Store:         inner,
		uploadErrs:    make(map[string]error),
		downloadErrs:  make(map[string]error),
		uploadCalls:   make(map[string]int),
		downloadCalls: make(map[string]int),
	}
}

// FailUpload makes every upload of name return err.
func (f *FaultyStore) FailUpload(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadErrs[name] = err
}

// FailDownload makes every download of name return err.
func (f *FaultyStore) FailDownload(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadErrs[name] = err
}

// FailList makes List return err.
func (f *FaultyStore) FailList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// UploadCalls returns how often Upload was called for name.
func (f *FaultyStore) UploadCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls[name]
}

// DownloadCalls returns how often Download was called for name.
func (f *FaultyStore) DownloadCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadCalls[name]
}

func (f *FaultyStore) Upload(ctx context.Context, name string, body io.Reader, size int64, opts coldstore.UploadOptions) (bool, error) {
	f.mu.Lock()
	f.uploadCalls[name]++
	err := f.uploadErrs[name]
	f.mu.Unlock()

	if err != nil {
		return false, err
	}
	return f.Store.Upload(ctx, name, body, size, opts)
}

func (f *FaultyStore) Download(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	f.downloadCalls[name]++
	err := f.downloadErrs[name]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return f.Store.Download(ctx, name)
}

func (f *FaultyStore) List(ctx context.Context) ([]coldstore.ObjectInfo, error) {
	f.mu.Lock()
	err := f.listErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return f.Store.List(ctx)
}
