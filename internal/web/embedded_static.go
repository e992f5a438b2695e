package web

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed static templates
var embeddedFS embed.FS

// StaticFS returns the static file root: dir on disk if set, the embedded files otherwise
func StaticFS(dir string) (fs.FS, error) {
	return subFS(dir, "static")
}

// TemplatesFS returns the template root: dir on disk if set, the embedded templates otherwise
func TemplatesFS(dir string) (fs.FS, error) {
	return subFS(dir, "templates")
}

func subFS(dir, embedded string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embeddedFS, embedded)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s directory: %w", embedded, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// ListFiles returns all regular files below fsys for debugging
func ListFiles(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// StaticMiddleware serves a file from fsys when the request path names one
// and ends the chain. Anything else (directories, missing files, other
// methods) is passed on to the next handler.
func StaticMiddleware(fsys fs.FS) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+c.Request.URL.Path), "/")
		if name == "" || !fs.ValidPath(name) {
			c.Next()
			return
		}

		f, err := fsys.Open(name)
		if err != nil {
			c.Next()
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || !info.Mode().IsRegular() {
			c.Next()
			return
		}

		content, ok := f.(io.ReadSeeker)
		if !ok {
			data, err := io.ReadAll(f)
			if err != nil {
				c.Next()
				return
			}
			content = bytes.NewReader(data)
		}

		c.Header("Cache-Control", "public, max-age=3600") // browser caches an hour
		http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), content)
		c.Abort()
	}
}
