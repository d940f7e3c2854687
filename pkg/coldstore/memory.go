package coldstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/tiercache/pkg/storeerr"
)

type memoryObject struct {
	data    []byte
	etag    string
	modTime time.Time
	opts    UploadOptions
}

// MemoryStore keeps objects in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	public  bool
	baseURL string
}

// NewMemoryStore creates an empty in-memory store. When baseURL is non-empty
// the store behaves as a public bucket served from that URL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		public:  baseURL != "",
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// EnsureBucket is a no-op: the map always exists.
func (m *MemoryStore) EnsureBucket(ctx context.Context) error {
	return ctx.Err()
}

// Upload stores body under name unless name is already present.
func (m *MemoryStore) Upload(ctx context.Context, name string, body io.Reader, size int64, opts UploadOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storeerr.Wrap("memory upload", err)
	}
	if name == "" {
		return false, storeerr.New("memory upload", storeerr.KindInvalid, nil)
	}

	data, err := readBody(body, size)
	if err != nil {
		ColdOperations.WithLabelValues("upload", "error").Inc()
		return false, storeerr.Wrap("memory upload", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[name]; ok {
		ColdOperations.WithLabelValues("upload", "exists").Inc()
		return false, nil
	}

	sum := sha256.Sum256(data)
	m.objects[name] = memoryObject{
		data:    data,
		etag:    hex.EncodeToString(sum[:]),
		modTime: time.Now().UTC(),
		opts:    opts.withDefaults(name),
	}
	ColdOperations.WithLabelValues("upload", "ok").Inc()
	ColdTransferBytes.WithLabelValues("upload").Add(float64(len(data)))
	return true, nil
}

// Download returns a copy of the stored bytes.
func (m *MemoryStore) Download(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeerr.Wrap("memory download", err)
	}

	m.mu.RLock()
	obj, ok := m.objects[name]
	m.mu.RUnlock()

	if !ok {
		ColdOperations.WithLabelValues("download", "not_found").Inc()
		return nil, storeerr.New("memory download", storeerr.KindNotFound, nil)
	}

	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	ColdOperations.WithLabelValues("download", "ok").Inc()
	ColdTransferBytes.WithLabelValues("download").Add(float64(len(out)))
	return out, nil
}

// List returns all objects sorted by name.
func (m *MemoryStore) List(ctx context.Context) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeerr.Wrap("memory list", err)
	}

	m.mu.RLock()
	infos := make([]ObjectInfo, 0, len(m.objects))
	for name, obj := range m.objects {
		infos = append(infos, ObjectInfo{
			Name:         name,
			Size:         int64(len(obj.data)),
			ETag:         obj.etag,
			LastModified: obj.modTime,
		})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	ColdOperations.WithLabelValues("list", "ok").Inc()
	return infos, nil
}

// PublicURL resolves only for public stores.
func (m *MemoryStore) PublicURL(name string) (string, bool) {
	if !m.public || name == "" {
		return "", false
	}
	return m.baseURL + "/" + escapePath(name), true
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// escapePath escapes each slash-separated segment of name.
func escapePath(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
