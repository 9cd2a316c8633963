package middleware

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// Files serves regular files under dir for GET and HEAD.  Anything else,
// including directories and misses, falls through to next.
func Files(dir string) Func {
	fileServer := http.FileServer(http.Dir(dir))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			clean := path.Clean("/" + r.URL.Path)
			fi, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean)))
			if err != nil || !fi.Mode().IsRegular() {
				next.ServeHTTP(w, r)
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	}
}
