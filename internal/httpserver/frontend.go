package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"recruitportal/portal-api/internal/session"
)

// registerFrontendHandlers serves the static site. Dashboard pages pass
// through the session facade, which reads the verified token cookie and
// redirects anonymous or wrong-role visitors.
func registerFrontendHandlers(mux *http.ServeMux, deps Deps) {
	distDir := strings.TrimSpace(deps.FrontendDistDir)
	if distDir == "" {
		return
	}
	if info, err := os.Stat(distDir); err != nil || !info.IsDir() {
		deps.Logger.Sugar().Warnf("frontend dir %q unavailable, static site disabled", distDir)
		return
	}

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		cleanPath := path.Clean("/" + r.URL.Path)
		if info, err := os.Stat(diskPath(distDir, cleanPath)); err == nil && info.IsDir() {
			cleanPath = path.Join(cleanPath, "index.html")
		}

		if strings.HasSuffix(cleanPath, ".html") {
			w.Header().Set("Cache-Control", "no-store")
			facade := session.New(session.NewCookieStore(w, r, deps.Auth, deps.CookieSecure), nil)
			if d := facade.Navigate(cleanPath); !d.Allow {
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}
		}

		serveStatic(w, r, diskPath(distDir, cleanPath))
	})
}

func diskPath(distDir, urlPath string) string {
	return filepath.Join(distDir, filepath.FromSlash(strings.TrimPrefix(urlPath, "/")))
}

// serveStatic uses ServeContent rather than ServeFile, which would redirect
// */index.html away from the path the facade just approved.
func serveStatic(w http.ResponseWriter, r *http.Request, fullPath string) {
	f, err := os.Open(fullPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
