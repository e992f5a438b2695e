// Package views loads page templates together with their shared partials
// and renders them through gin.
//
// Layout of the template filesystem:
//
//	home.html            page, rendered as "home.html"
//	about.html           page, rendered as "about.html"
//	partials/header.html {{define "header"}}...{{end}}, usable from every page
//
// Every page gets its own template set holding a copy of all partials, so
// pages may define blocks with the same name without clashing.
package views

import (
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/render"
)

// PartialsDir is the directory (relative to the template root) holding fragments
const PartialsDir = "partials"

// Set holds one parsed template per page
type Set struct {
	fsys   fs.FS
	funcs  template.FuncMap
	reload bool

	mu    sync.RWMutex
	pages map[string]*template.Template
}

// Load parses every page found in fsys. Functions have to be known before
// parsing, so funcs is fixed for the lifetime of the Set.
// With reload set, pages are parsed again from fsys on every render.
func Load(fsys fs.FS, funcs template.FuncMap, reload bool) (*Set, error) {
	s := &Set{fsys: fsys, funcs: funcs, reload: reload}
	pages, err := s.parseAll()
	if err != nil {
		return nil, err
	}
	s.pages = pages
	return s, nil
}

// Names returns the sorted page names
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.pages))
	for name := range s.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a page named name exists.
// With reload set the template root is asked, so pages added later count.
func (s *Set) Has(name string) bool {
	if s.reload {
		if path.Dir(name) == PartialsDir || !strings.HasSuffix(name, ".html") {
			return false
		}
		info, err := fs.Stat(s.fsys, name)
		return err == nil && info.Mode().IsRegular()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pages[name]
	return ok
}

// Lookup returns the template for page name
func (s *Set) Lookup(name string) (*template.Template, error) {
	if s.reload {
		t, err := s.parsePage(name)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.pages[name] = t
		s.mu.Unlock()
		return t, nil
	}
	s.mu.RLock()
	t, ok := s.pages[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no template found for page %q", name)
	}
	return t, nil
}

// Instance implements gin's render.HTMLRender
func (s *Set) Instance(name string, data any) render.Render {
	t, err := s.Lookup(name)
	if err != nil {
		log.Printf("[VIEWS]: %v", err)
		return errorRender{err: err}
	}
	return render.HTML{Template: t, Name: name, Data: data}
}

// errorRender hands a resolution failure to gin, which records it on the context
type errorRender struct{ err error }

func (r errorRender) Render(http.ResponseWriter) error { return r.err }

func (r errorRender) WriteContentType(http.ResponseWriter) {}

func (s *Set) parseAll() (map[string]*template.Template, error) {
	var names []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == PartialsDir {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(p, ".html") {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan templates: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := s.parsePage(name)
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

// parsePage builds the template set for one page: all partials first, then the page itself
func (s *Set) parsePage(name string) (*template.Template, error) {
	partials, err := fs.Glob(s.fsys, path.Join(PartialsDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to list partials: %w", err)
	}

	t := template.New(name).Funcs(s.funcs)
	for _, p := range partials {
		src, err := fs.ReadFile(s.fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read partial %s: %w", p, err)
		}
		if _, err := t.New(p).Parse(string(src)); err != nil {
			return nil, fmt.Errorf("failed to parse partial %s: %w", p, err)
		}
	}

	src, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %s: %w", name, err)
	}
	if _, err := t.Parse(string(src)); err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
	}
	return t, nil
}
