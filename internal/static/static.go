package static

import _ "embed"

// GuideMd contains the embedded guide.md describing the API and the stream protocol.
//
//go:embed guide.md
var GuideMd string
