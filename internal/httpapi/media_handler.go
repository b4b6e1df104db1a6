package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/daydream/camera-core/internal/media"
)

// handleMedia implements the media surface: GET streams a file (200
// full / 206 partial via Range), DELETE removes it. Path traversal and
// absent files both yield 404, never distinguishing "outside the
// allowed base" from "doesn't exist".
func handleMedia(w http.ResponseWriter, r *http.Request, lister *media.Lister) {
	rel := strings.TrimPrefix(r.URL.Path, "/media/")
	full, ok := lister.ResolvePath(rel)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		serveFile(w, r, full)
	case http.MethodDelete:
		deleteFile(w, full)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func serveFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}
	size := info.Size()

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, f)
		return
	}

	start, end, err := parseRange(rangeHeader, size)
	if err != nil {
		http.Error(w, "malformed range", http.StatusBadRequest)
		return
	}
	if start >= size {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		http.Error(w, "seek error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	// A client-initiated close mid-copy returns an error from io.CopyN that
	// we deliberately ignore: the accept loop keeps running.
	io.CopyN(w, f, end-start+1)
}

// parseRange parses a single-range "bytes=A-B|A-|-N" header against
// size. Multi-range requests are not supported; only the first range is
// honored.
func parseRange(header string, size int64) (start, end int64, err error) {
	if !strings.HasPrefix(header, "bytes=") {
		return 0, 0, fmt.Errorf("missing bytes= prefix")
	}
	spec := strings.TrimPrefix(header, "bytes=")
	if idx := strings.Index(spec, ","); idx >= 0 {
		spec = spec[:idx]
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed range")
	}

	if parts[0] == "" {
		// suffix range: "-N" means the last N bytes
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("malformed suffix range")
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		return start, size - 1, nil
	}

	start, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("malformed range start")
	}
	if parts[1] == "" {
		return start, size - 1, nil
	}
	end, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil || end < start {
		return 0, 0, fmt.Errorf("malformed range end")
	}
	if end >= size {
		end = size - 1
	}
	return start, end, nil
}

func deleteFile(w http.ResponseWriter, path string) {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
