package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// AudioHandler serves stored answer recordings to reviewers. Only flat
// .webm names inside the storage directory resolve.
type AudioHandler struct {
	dir string
}

func NewAudioHandler(dir string) *AudioHandler {
	return &AudioHandler{dir: dir}
}

// GET /audio/{filename}
func (h *AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".webm") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "audio/webm")
	http.ServeFile(w, r, path)
}
