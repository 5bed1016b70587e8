// Package testutil provides a fake Git LFS forge for tests.
package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/meigma/lfs/forge"
)

// Object is an LFS object as sent in batch requests.
type Object struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

// OID returns the hex SHA256 of content.
func OID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// PointerText renders an LFS pointer file for content.
func PointerText(content []byte) string {
	return fmt.Sprintf("version https://git-lfs.github.com/spec/v1\noid sha256:%s\nsize %d\n", OID(content), len(content))
}

// BuildArchive zips files keyed by archive path.
func BuildArchive(tb testing.TB, files map[string]string) []byte {
	tb.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

// LFSServer is an in-memory forge serving the LFS batch API, object
// downloads, and a repository archive.
type LFSServer struct {
	*httptest.Server

	Namespace string
	Name      string
	Revision  string

	mu             sync.Mutex
	objects        map[string][]byte
	batchSizes     []int
	downloadCounts map[string]int
	failures       map[string]int
	delay          func(oid string) time.Duration
	batchOverride  http.HandlerFunc
	reverse        bool
	archive        []byte

	inFlight     atomic.Int64
	peakInFlight atomic.Int64
	batchCalls   atomic.Int64
	downloads    atomic.Int64
}

// NewLFSServer starts a server that is closed when the test ends.
func NewLFSServer(tb testing.TB) *LFSServer {
	tb.Helper()
	s := &LFSServer{
		Namespace:      "ns",
		Name:           "repo",
		Revision:       "main",
		objects:        make(map[string][]byte),
		downloadCounts: make(map[string]int),
		failures:       make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	tb.Cleanup(s.Close)
	return s
}

// Tree returns the coordinate of the served repository.
func (s *LFSServer) Tree() forge.Tree {
	u, _ := url.Parse(s.URL) //nolint:errcheck // httptest URLs always parse
	return forge.Tree{
		Hostname:  u.Host,
		Namespace: s.Namespace,
		Name:      s.Name,
		Revision:  s.Revision,
		Kind:      forge.GitHub,
		Scheme:    u.Scheme,
	}
}

// AddObject stores content and returns its oid.
func (s *LFSServer) AddObject(content []byte) string {
	oid := OID(content)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[oid] = content
	return oid
}

// SetArchive sets the zip archive served at the tree's archive URL.
func (s *LFSServer) SetArchive(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = data
}

// FailDownloads makes downloads of oid answer with status.
// A zero status clears the failure.
func (s *LFSServer) FailDownloads(oid string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, oid)
		return
	}
	s.failures[oid] = status
}

// SetDelay adds per-object latency to downloads.
func (s *LFSServer) SetDelay(f func(oid string) time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = f
}

// SetReverse makes batch responses list objects in reverse request order.
func (s *LFSServer) SetReverse(reverse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reverse = reverse
}

// SetBatchOverride replaces the batch API handler.
func (s *LFSServer) SetBatchOverride(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchOverride = h
}

// BatchCalls returns how many batch requests were received.
func (s *LFSServer) BatchCalls() int { return int(s.batchCalls.Load()) }

// BatchSizes returns the object count of each batch request, sorted.
func (s *LFSServer) BatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := slices.Clone(s.batchSizes)
	slices.Sort(sizes)
	return sizes
}

// Downloads returns how many object downloads were received.
func (s *LFSServer) Downloads() int { return int(s.downloads.Load()) }

// DownloadsOf returns how many times oid was downloaded.
func (s *LFSServer) DownloadsOf(oid string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloadCounts[oid]
}

// PeakInFlight returns the highest number of concurrent requests observed.
func (s *LFSServer) PeakInFlight() int { return int(s.peakInFlight.Load()) }

func (s *LFSServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peakInFlight.Load()
		if n <= peak || s.peakInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	batchPath := fmt.Sprintf("/%s/%s.git/info/lfs/objects/batch", s.Namespace, s.Name)
	archivePath := fmt.Sprintf("/%s/%s/archive/refs/heads/%s.zip", s.Namespace, s.Name, s.Revision)
	switch {
	case r.Method == http.MethodPost && r.URL.Path == batchPath:
		s.serveBatch(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/objects/"):
		s.serveObject(w, r, strings.TrimPrefix(r.URL.Path, "/objects/"))
	case r.Method == http.MethodGet && r.URL.Path == archivePath:
		s.mu.Lock()
		archive := s.archive
		s.mu.Unlock()
		if archive == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	default:
		http.NotFound(w, r)
	}
}

func (s *LFSServer) serveBatch(w http.ResponseWriter, r *http.Request) {
	s.batchCalls.Add(1)

	s.mu.Lock()
	override := s.batchOverride
	s.mu.Unlock()
	if override != nil {
		override(w, r)
		return
	}

	if r.Header.Get("Content-Type") != "application/vnd.git-lfs+json" {
		http.Error(w, "bad content type", http.StatusUnsupportedMediaType)
		return
	}

	var req struct {
		Operation string   `json:"operation"`
		Objects   []Object `json:"objects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Operation != "download" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	type download struct {
		Href string `json:"href"`
	}
	type respObject struct {
		OID     string `json:"oid"`
		Size    int64  `json:"size"`
		Actions *struct {
			Download download `json:"download"`
		} `json:"actions,omitempty"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	s.mu.Lock()
	s.batchSizes = append(s.batchSizes, len(req.Objects))
	reverse := s.reverse
	out := make([]respObject, 0, len(req.Objects))
	for _, obj := range req.Objects {
		ro := respObject{OID: obj.OID, Size: obj.Size}
		if _, ok := s.objects[obj.OID]; ok {
			ro.Actions = &struct {
				Download download `json:"download"`
			}{Download: download{Href: s.URL + "/objects/" + obj.OID}}
		} else {
			ro.Error = &struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}{Code: http.StatusNotFound, Message: "Object does not exist"}
		}
		out = append(out, ro)
	}
	s.mu.Unlock()

	if reverse {
		slices.Reverse(out)
	}

	w.Header().Set("Content-Type", "application/vnd.git-lfs+json")
	_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test server
		"transfer": "basic",
		"objects":  out,
	})
}

func (s *LFSServer) serveObject(w http.ResponseWriter, r *http.Request, oid string) {
	s.downloads.Add(1)

	s.mu.Lock()
	s.downloadCounts[oid]++
	content, ok := s.objects[oid]
	status := s.failures[oid]
	delay := s.delay
	s.mu.Unlock()

	if delay != nil {
		select {
		case <-time.After(delay(oid)):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, "injected failure", status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(content)
}
