package nodegraph

import _ "embed"

// Version is the module version, read from the VERSION file at build time.
//
//go:embed VERSION
var Version string
