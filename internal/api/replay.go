package api

import (
	"bytes"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

type cachedResponse struct {
	status int
	header http.Header
	body   []byte
}

// replayCache remembers responses to mutating requests by Idempotency-Key,
// so a client retrying after a dropped connection does not advance twice.
// A key is reserved before the handler runs; a retry that arrives while the
// first attempt is still running is turned away.
type replayCache struct {
	mu       sync.Mutex
	limit    int
	order    []string
	items    map[string]cachedResponse
	inflight map[string]struct{}
}

func newReplayCache(limit int) *replayCache {
	return &replayCache{
		limit:    limit,
		items:    map[string]cachedResponse{},
		inflight: map[string]struct{}{},
	}
}

type reservation int

const (
	reserved reservation = iota
	replayed
	busy
)

// reserve claims key for the caller, or reports a finished response or a
// running attempt already holding it.
func (c *replayCache) reserve(key string) (cachedResponse, reservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.items[key]; ok {
		return v, replayed
	}
	if _, ok := c.inflight[key]; ok {
		return cachedResponse{}, busy
	}
	c.inflight[key] = struct{}{}
	return cachedResponse{}, reserved
}

// release frees a reservation without caching, so the key can be retried.
func (c *replayCache) release(key string) {
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
}

func (c *replayCache) put(key string, v cachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)
	if _, ok := c.items[key]; ok {
		return
	}
	c.items[key] = v
	c.order = append(c.order, key)
	for len(c.order) > c.limit {
		delete(c.items, c.order[0])
		c.order = c.order[1:]
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		key = chi.URLParam(r, "slot") + "|" + r.URL.Path + "|" + key
		cached, state := s.replay.reserve(key)
		switch state {
		case replayed:
			for k, v := range cached.header {
				w.Header()[k] = v
			}
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(cached.status)
			_, _ = w.Write(cached.body)
			return
		case busy:
			writeError(w, http.StatusConflict, "a request with this Idempotency-Key is still running")
			return
		}

		rec := &recorder{ResponseWriter: w}
		completed := false
		defer func() {
			if !completed {
				s.replay.release(key)
			}
		}()
		next.ServeHTTP(rec, r)
		if rec.status >= 500 {
			return
		}
		completed = true
		s.replay.put(key, cachedResponse{
			status: rec.status,
			header: w.Header().Clone(),
			body:   rec.buf.Bytes(),
		})
	})
}
