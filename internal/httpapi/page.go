package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-podcast-search/search"
	"github.com/yosssi/gohtml"
	"go.uber.org/zap"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

type pageData struct {
	Term    string
	Pages   []search.Page
	Empty   bool
	MoreURL string
	Error   string
}

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{
		tmpl: template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl")),
	}
}

// render executes the template and indents the markup.
func (p *pageRenderer) render(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "index.html.tmpl", data); err != nil {
		return nil, err
	}
	return gohtml.FormatBytes(buf.Bytes()), nil
}

// page renders the accumulated feed for ?q= with ?pages= pages loaded. The load more
// link asks for one page more until the feed is done.
func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{Term: strings.TrimSpace(q.Get("q"))}
	status := http.StatusOK

	if data.Term != "" {
		pages, err := pagesParam(q.Get("pages"))
		if err != nil {
			status, data.Error = http.StatusBadRequest, err.Error()
		} else {
			feed := h.svc.NewFeed(data.Term)
			data.Pages, err = feed.Collect(r.Context(), pages)
			if err != nil {
				var msg string
				status, msg = statusFor(err)
				data.Error = msg
				if status >= http.StatusInternalServerError {
					h.logger.Error("rendering results page", zap.Error(err), zap.String("term", data.Term))
				}
			}
			data.Empty = err == nil && totalLen(data.Pages) == 0
			if err == nil && !feed.Done() && len(data.Pages) < MaxFeedPages {
				data.MoreURL = "/?" + url.Values{
					"q":     {data.Term},
					"pages": {strconv.Itoa(len(data.Pages) + 1)},
				}.Encode()
			}
		}
	}

	body, err := h.ui.render(data)
	if err != nil {
		h.logger.Error("executing page template", zap.Error(err))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func totalLen(pages []search.Page) int {
	n := 0
	for _, p := range pages {
		n += p.Len()
	}
	return n
}
