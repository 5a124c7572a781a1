package api

import (
	"net/http"
	"strings"

	"popxf/adapters/report"
	"popxf/internal/engine"
)

// renderReport writes the document report as Markdown, or HTML when the
// client asks for it (Accept header or ?format=html).
func renderReport(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	wantHTML := r.URL.Query().Get("format") == "html" ||
		strings.Contains(r.Header.Get("Accept"), "text/html")

	if wantHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(report.HTML(eng))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(report.Markdown(eng)))
}
