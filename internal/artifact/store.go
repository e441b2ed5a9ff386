package artifact

import (
	"errors"
	"mime"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PathPrefix is where the web server mounts the store.
const PathPrefix = "/objects/"

var ErrNotFound = errors.New("object not found")

type Object struct {
	Name      string
	MIMEType  string
	Data      []byte
	CreatedAt time.Time
}

type Options struct {
	// BaseURL is prepended to PathPrefix, e.g. "http://localhost:8080". Empty
	// keeps URLs relative.
	BaseURL string
}

// Store keeps generated payloads in memory and hands out URLs for them, the
// server-side counterpart of a browser object URL. Objects live until Revoke.
type Store struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

func NewStore(opts Options) *Store {
	return &Store{
		objects: make(map[string]Object),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

func (s *Store) Put(data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("artifact: empty payload")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	name := uuid.NewString() + extension(mimeType)
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[name] = Object{Name: name, MIMEType: mimeType, Data: buf, CreatedAt: time.Now()}
	s.mu.Unlock()

	return s.baseURL + PathPrefix + name, nil
}

func (s *Store) Get(name string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[name]
	if !ok {
		return Object{}, ErrNotFound
	}
	return obj, nil
}

// Lookup resolves a URL previously returned by Put.
func (s *Store) Lookup(url string) (Object, error) {
	name, ok := s.nameOf(url)
	if !ok {
		return Object{}, ErrNotFound
	}
	return s.Get(name)
}

// Revoke releases the object behind url. Unknown URLs (data URIs included)
// are ignored.
func (s *Store) Revoke(url string) {
	name, ok := s.nameOf(url)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.objects, name)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *Store) nameOf(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, s.baseURL+PathPrefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return path.Base(rest), true
}

func extension(mimeType string) string {
	switch mimeType {
	case "video/mp4":
		return ".mp4"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
