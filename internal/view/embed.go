package view

import "embed"

// templatesFS embeds the HTML pages rendered by the web handlers.
//
//go:embed templates/*.html
var templatesFS embed.FS

// staticFS embeds the stylesheet and the default avatar.
//
//go:embed static/*
var staticFS embed.FS
