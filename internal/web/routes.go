package web

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/veriface/veriface/internal/web/handlers"
)

func (s *Server) setupRoutes(comparator handlers.Comparator) {
	compareHandler := handlers.NewCompareHandler(s.config, comparator)
	maskHandler := handlers.NewMaskHandler(s.config)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/compare", compareHandler.Compare)
		r.Post("/mask", maskHandler.Mask)
	})

	// Uploaded and masked images for result pages.
	s.router.Get("/uploads/{name}", s.serveUpload)

	s.router.Get("/", s.serveIndex)
}

// serveUpload serves a single file from the upload directory. The name
// is reduced to its base so path traversal cannot escape the directory.
func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "name"))
	path := filepath.Join(s.config.Upload.Dir, name)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// serveIndex serves a placeholder page pointing at the API.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Veriface</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
        code { background: #2a2a3e; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Veriface</h1>
        <p>Face comparison API. Send two images to <code>POST /api/v1/compare</code>.</p>
        <p>API health at <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
