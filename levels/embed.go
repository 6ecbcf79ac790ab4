package levels

import "embed"

// SamplesFS holds the demo levels shipped with the editor.
//
//go:embed samples/*.yol samples/*.yoli
var SamplesFS embed.FS
