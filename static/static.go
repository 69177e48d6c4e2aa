// Package static holds the page bootstrap served under /static/.
package static

import "embed"

//go:embed *.js *.css
var FS embed.FS
