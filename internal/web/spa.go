package web

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	sharedlogger "polystat-gateway/internal/shared/logger"
)

// Paths owned by other routes. The SPA fallback must never shadow them.
var reservedPrefixes = []string{"api/", "docs", "redoc"}

const (
	publicDir = "public"
	assetsDir = "assets"
	indexFile = "index.html"
)

// Resolution is the outcome of resolving a request path against the static
// root. File is set only when Status is 200.
type Resolution struct {
	Status  int
	File    string
	Message string
}

func reject(status int, message string) Resolution {
	return Resolution{Status: status, Message: message}
}

// SPA serves a single-page application from root: files under root/public
// when they exist, root/index.html for every other client route.
type SPA struct {
	root   string
	logger sharedlogger.Logger
}

// NewSPA creates an SPA server rooted at root
func NewSPA(root string, logger sharedlogger.Logger) *SPA {
	return &SPA{root: root, logger: logger}
}

// Available reports whether the static root exists.
func (s *SPA) Available() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

// Resolve maps a request path (without its leading slash) to a file to serve
// or to a rejection.
func (s *SPA) Resolve(p string) Resolution {
	if invalidPath(p) {
		return reject(http.StatusBadRequest, "Invalid path")
	}
	if p == "health" {
		return reject(http.StatusNotFound, "Not found")
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(p, prefix) {
			return reject(http.StatusNotFound, "Not found")
		}
	}
	if strings.HasPrefix(p, assetsDir+"/") {
		return reject(http.StatusNotFound, "Not found")
	}

	if p != "" {
		candidate := filepath.Join(s.root, publicDir, filepath.FromSlash(p))
		info, err := os.Stat(candidate)
		switch {
		case err == nil && info.Mode().IsRegular():
			return s.contain(p, candidate)
		case err != nil && !missing(err):
			s.logger.Error("Failed to stat static file", "path", p, "err", err)
			return reject(http.StatusInternalServerError, "Internal server error")
		}
	}

	index := filepath.Join(s.root, indexFile)
	info, err := os.Stat(index)
	switch {
	case err == nil && info.Mode().IsRegular():
		return Resolution{Status: http.StatusOK, File: index}
	case err == nil || missing(err):
		return reject(http.StatusNotFound, "Frontend not found")
	default:
		s.logger.Error("Failed to stat index file", "path", index, "err", err)
		return reject(http.StatusInternalServerError, "Internal server error")
	}
}

// contain resolves symlinks on both sides and only admits files whose real
// path stays under the real root.
func (s *SPA) contain(p, candidate string) Resolution {
	realRoot, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		s.logger.Error("Failed to resolve static root", "root", s.root, "err", err)
		return reject(http.StatusInternalServerError, "Internal server error")
	}
	realFile, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		s.logger.Error("Failed to resolve static file", "path", p, "err", err)
		return reject(http.StatusInternalServerError, "Internal server error")
	}

	if !within(realRoot, realFile) {
		s.logger.Warn("Blocked static file outside root", "path", p, "resolved", realFile, "root", realRoot)
		return reject(http.StatusForbidden, "Access denied")
	}
	return Resolution{Status: http.StatusOK, File: realFile}
}

// ServeHTTP resolves the request path and writes either the file or a JSON
// error.
func (s *SPA) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := s.Resolve(strings.TrimPrefix(r.URL.Path, "/"))
	if res.Status != http.StatusOK {
		writeError(w, res.Status, res.Message)
		return
	}
	s.serveFile(w, r, res.File)
}

func (s *SPA) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	f, err := os.Open(name)
	if err != nil {
		s.logger.Error("Failed to open static file", "path", name, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.logger.Error("Failed to stat static file", "path", name, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// Assets serves root/assets verbatim. Directory listings are not exposed.
func (s *SPA) Assets() http.Handler {
	files := http.FileServer(http.Dir(filepath.Join(s.root, assetsDir)))
	return http.StripPrefix("/"+assetsDir, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		files.ServeHTTP(w, r)
	}))
}

func invalidPath(p string) bool {
	return strings.Contains(p, "../") ||
		strings.HasPrefix(p, "/") ||
		strings.HasPrefix(p, "..") ||
		strings.ContainsRune(p, 0)
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}

func missing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
