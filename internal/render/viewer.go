package render

import "github.com/pkg/browser"

// Viewer shows a rendered file to the user.
type Viewer interface {
	Open(path string) error
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(path string) error

func (f ViewerFunc) Open(path string) error { return f(path) }

// SystemViewer opens files with the platform's default application.
type SystemViewer struct{}

func (SystemViewer) Open(path string) error { return browser.OpenFile(path) }
