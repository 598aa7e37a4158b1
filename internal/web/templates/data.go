// Package templates renders the classification pages. The components live in
// .templ files; run `templ generate` after editing them.
package templates

import "github.com/JonMunkholm/RareDx/internal/core"

// Alert is a request-level error shown above the upload panel.
type Alert struct {
	Message string
	Action  string
	Code    string
}

// PageData is everything the classification page needs.
type PageData struct {
	Snapshot core.Snapshot
	Diseases []string
	Alert    *Alert
}
