package loader

import (
	"golang.org/x/sync/singleflight"

	"macroscan/internal/document"
)

// Group collapses concurrent loads of the same key into one read.
type Group struct {
	g singleflight.Group
}

func (g *Group) Do(key string, fn func() (*document.Document, error)) (*document.Document, error, bool) {
	v, err, shared := g.g.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err, shared
	}
	doc, _ := v.(*document.Document)
	return doc, nil, shared
}
