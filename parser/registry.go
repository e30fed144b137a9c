package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Opener opens a document of one format.
type Opener func(path string) (Document, error)

// Registry maps file extensions to openers.
type Registry struct {
	openers map[string]Opener
}

func NewRegistry() *Registry {
	r := &Registry{openers: make(map[string]Opener)}
	r.Register("pdf", func(path string) (Document, error) { return OpenPDF(path) })
	r.Register("txt", func(path string) (Document, error) { return OpenText(path) })
	return r
}

func (r *Registry) Get(format string) (Opener, error) {
	o, ok := r.openers[format]
	if !ok {
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	return o, nil
}

func (r *Registry) Register(format string, o Opener) {
	r.openers[format] = o
}

// Open opens path with the opener registered for its extension.
func (r *Registry) Open(path string) (Document, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	o, err := r.Get(format)
	if err != nil {
		return nil, err
	}
	return o(path)
}

// Open opens path with the built-in openers.
func Open(path string) (Document, error) {
	return NewRegistry().Open(path)
}
