package api

import (
	_ "embed"
	"net/http"
)

//go:embed docs.html
var docsPage []byte

// redirectDocs sends the root path to the API reference.
func redirectDocs(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
}

// docs serves the embedded API reference page.
func docs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(docsPage)
}
