package cli

import (
	"github.com/julianstephens/umbral/internal/document"
	"github.com/julianstephens/umbral/internal/habits"
	"github.com/julianstephens/umbral/internal/notifier"
)

// Context carries the started habit store and its collaborators into
// every command's Run method.
type Context struct {
	Store      *habits.Store
	Provider   document.Provider
	Dispatcher *notifier.Dispatcher
	Timezone   string
	StorePath  string
}

// Finish flushes pending writes and reports any that failed. Mutating
// commands call it before returning so a short-lived process never drops
// a write silently.
func (c *Context) Finish() error {
	c.Store.Flush()
	select {
	case err := <-c.Store.Errors():
		return err
	default:
		return nil
	}
}
