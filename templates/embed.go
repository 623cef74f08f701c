package templates

import "embed"

// ViewsFS contains the server-rendered HTML views.
//
//go:embed views/*.tmpl
var ViewsFS embed.FS

// StaticFS contains static assets served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
