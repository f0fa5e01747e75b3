package templates

import "embed"

// Emails holds the html and txt bodies for outbound email
//
//go:embed emails/*.html emails/*.txt
var Emails embed.FS
