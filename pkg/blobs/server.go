package blobs

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog/v2"
)

// Server serves cached blobs over HTTP at /<hash>, the layout ModelServer
// reads. Misses are filled from the cache's upstream.
type Server struct {
	Cache *Cache
}

var _ http.Handler = (*Server)(nil)

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokens := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if len(tokens) != 1 || tokens[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.serveBlob(w, r, tokens[0])
}

func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request, hash string) {
	ctx := r.Context()
	log := klog.FromContext(ctx)

	p, err := s.Cache.Fetch(ctx, hash)
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			http.Error(w, "not found", http.StatusNotFound)
		case codes.InvalidArgument:
			http.Error(w, "bad request", http.StatusBadRequest)
		default:
			log.Error(err, "fetching blob", "hash", hash)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	log.V(2).Info("serving blob", "path", p)
	http.ServeFile(w, r, p)
}
