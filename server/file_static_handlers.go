package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
)

//go:embed static/*
var staticFiles embed.FS

var staticFS = sync.OnceValue(func() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("static sub filesystem: " + err.Error())
	}
	return sub
})

func StaticFilesFS() fs.FS {
	return staticFS()
}

// StaticFileHandler serves GET /static/{file}
func (s *Server) StaticFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := StreamFile(w, r, r.PathValue("file")); err != nil {
			logError(r.Method, r.URL.Path, err)
			http.NotFound(w, r)
		}
	}
}

// StreamFile writes an embedded asset. Assets are tagged with a hash of their content;
// a matching If-None-Match gets 304 with no body.
func StreamFile(w http.ResponseWriter, r *http.Request, fileName string) error {
	if fileName == "" || strings.Contains(fileName, "..") {
		return fmt.Errorf("invalid file name %q", fileName)
	}
	data, err := fs.ReadFile(StaticFilesFS(), fileName)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`
	w.Header().Set("ETag", etag)
	if r != nil && r.Header.Get("If-None-Match") == etag {
		w.Header().Del("Content-Encoding")
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("Content-Type", contentTypeOf(fileName, data))
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s content: %w", fileName, err)
	}
	return nil
}

func contentTypeOf(fileName string, data []byte) string {
	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(fileName)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(ctype, "charset=") {
		ctype += "; charset=utf-8"
	}
	return ctype
}
