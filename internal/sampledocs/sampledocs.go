// Package sampledocs bundles the KL University documents that seed an empty knowledge base.
package sampledocs

import (
	"embed"
	"io/fs"
)

//go:embed documents/*.md
var documents embed.FS

// FS returns the sample documents rooted at their directory.
func FS() fs.FS {
	sub, err := fs.Sub(documents, "documents")
	if err != nil {
		panic(err)
	}
	return sub
}
