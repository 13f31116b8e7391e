package refgraph

import (
	"fmt"
	"strings"

	"go.lsp.dev/uri"

	coreerrors "github.com/standardbeagle/solidity-lsp/internal/errors"
)

// URIToPath converts an editor-supplied document URI to a filesystem
// path. uri.URI.Filename panics on anything that isn't a well-formed
// file:// URI, so the panic is converted to a MalformedInput error here
// rather than letting unvetted editor input take down the request.
func URIToPath(fileURI string) (_ string, err error) {
	if !strings.HasPrefix(fileURI, "file://") {
		return "", coreerrors.MalformedInput("URIToPath", nil).WithPath(fileURI)
	}
	defer func() {
		if r := recover(); r != nil {
			err = coreerrors.MalformedInput("URIToPath", fmt.Errorf("%v", r)).WithPath(fileURI)
		}
	}()
	return uri.URI(fileURI).Filename(), nil
}

// uriToPath is the package-internal alias used throughout this package.
func uriToPath(fileURI string) (string, error) {
	return URIToPath(fileURI)
}

// pathToURI converts an absolute filesystem path to a document URI.
func pathToURI(path string) string {
	return string(uri.File(path))
}
