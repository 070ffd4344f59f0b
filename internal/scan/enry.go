package scan

import (
	"path/filepath"

	"github.com/go-enry/go-enry/v2"
)

// enryCandidates returns the languages go-enry associates with the file's
// extension. A single, safe answer comes back as one name.
func enryCandidates(path string) []string {
	name := filepath.Base(path)
	if lang, safe := enry.GetLanguageByExtension(name); lang != "" {
		if safe {
			return []string{lang}
		}
	}
	return enry.GetLanguagesByExtension(name, nil, nil)
}
