package web

import "embed"

// StaticFS embeds the browser frontend.
//
//go:embed static/*
var StaticFS embed.FS
