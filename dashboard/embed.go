// Package dashboard provides the embedded web UI for `agentcheck serve`.
//
// The page is included at compile time so the binary serves it without
// external asset files.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
