package gemini

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// NotFound replies with a permanent not-found status.
func NotFound(r Request) *Response {
	return &Response{Status: StatusNotFound, Meta: "resource not found"}
}

var registerGeminiMime sync.Once

// FileServer returns a handler serving files beneath root. A directory
// containing an index.gmi or index.gemini serves that file, otherwise
// it renders as a text/gemini listing. Hidden files and files that are
// not world-readable are skipped.
func FileServer(root string) Handler {
	registerGeminiMime.Do(func() {
		_ = mime.AddExtensionType(".gmi", "text/gemini")
		_ = mime.AddExtensionType(".gemini", "text/gemini")
	})
	return &fileHandler{root: root}
}

type fileHandler struct {
	root string
}

func (h *fileHandler) Handle(r Request) *Response {
	p := path.Clean(r.URL.Path)
	if strings.Contains(p, "..") {
		return &Response{Status: StatusMalformedRequest, Meta: "bad path"}
	}
	full := filepath.Join(h.root, filepath.FromSlash(p))
	fi, err := os.Stat(full)
	if err != nil {
		return NotFound(r)
	}
	if fi.IsDir() {
		return h.serveDirectory(full)
	}
	return serveFile(full)
}

func serveFile(name string) *Response {
	meta := mime.TypeByExtension(filepath.Ext(name))
	if meta == "" {
		// assume plain UTF-8 text
		meta = "text/gemini; charset=utf-8"
	}
	f, err := os.Open(name)
	if err != nil {
		return &Response{Status: StatusTempError, Meta: "unable to open file"}
	}
	return &Response{Status: StatusSuccess, Meta: meta, Body: f}
}

func (h *fileHandler) serveDirectory(dir string) *Response {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &Response{Status: StatusTempError, Meta: "unable to show directory listing"}
	}
	var page strings.Builder
	page.WriteString("# Directory Contents\r\n")
	for _, e := range entries {
		name := e.Name()
		// Don't list hidden files
		if strings.HasPrefix(name, ".") {
			continue
		}
		if info, err := e.Info(); err != nil || info.Mode().Perm()&0004 == 0 {
			continue
		}
		if name == "index.gmi" || name == "index.gemini" {
			// Found an index file, serve that instead
			return serveFile(filepath.Join(dir, name))
		}
		fmt.Fprintf(&page, "=> %s %s\r\n", name, name)
	}
	return &Response{
		Status: StatusSuccess,
		Meta:   "text/gemini",
		Body:   io.NopCloser(strings.NewReader(page.String())),
	}
}
