// Package cli provides the command-line interface for propcrawl.
package cli

import (
	"github.com/property-radar/crawl/internal/app"
)

// globalApp holds the shared Application between PersistentPreRunE and the
// command bodies. Cobra's own context plumbing does not survive the lazy
// initialization order used here.
var globalApp *app.Application

// SetApp stores the Application for command bodies to retrieve
func SetApp(a *app.Application) {
	globalApp = a
}

// GetApp retrieves the shared Application
func GetApp() *app.Application {
	return globalApp
}
