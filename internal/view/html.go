package view

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"WebStore/internal/catalog"
	"WebStore/pkg/kit"
)

const (
	opIncrement = "increment"
	opDecrement = "decrement"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<div class="App">
<header class="App-header"><h1 class="App-title">{{.Title}}</h1></header>
<div class="product-list">
<h2>Product list:</h2>
<h4>Cars:</h4>
{{- range .Rows}}
<div class="car" id="{{.ID}}">
<p>Name: {{.Name}}</p>
<p>Price: ${{.Price}}</p>
{{- if not $.ReadOnly}}
<form method="post" action="/ui/{{.ID}}/increment"><button>&uarr;</button></form>
<form method="post" action="/ui/{{.ID}}/decrement"><button>&darr;</button></form>
{{- end}}
</div>
{{- end}}
</div>
</div>
<script>
new EventSource("/catalog/events").addEventListener("snapshot", function (e) {
  if (JSON.parse(e.data).version !== {{.Version}}) { location.reload(); }
});
</script>
</body>
</html>
`))

type pageData struct {
	Title    string
	Version  uint64
	ReadOnly bool
	Rows     []Row
}

// Pages serves the HTML view of the primary catalog. With ReadOnly set the
// price buttons are not rendered and form posts are refused.
type Pages struct {
	Source   Source
	Log      *zap.Logger
	Title    string
	ReadOnly bool
	// Limit, if set, wraps the form post route.
	Limit func(http.Handler) http.Handler
}

func (p *Pages) Register(r chi.Router) {
	r.Get("/", p.index)
	if p.Limit != nil {
		r.With(p.Limit).Post("/ui/{id}/{op}", p.mutate)
		return
	}
	r.Post("/ui/{id}/{op}", p.mutate)
}

func (p *Pages) index(w http.ResponseWriter, r *http.Request) {
	st, err := p.Source.GetSnapshot(r.Context())
	if err != nil {
		if p.Log != nil {
			p.Log.Error("snapshot failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	title := p.Title
	if title == "" {
		title = "Welcome to my web store"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err = pageTmpl.Execute(w, pageData{
		Title:    title,
		Version:  st.Version,
		ReadOnly: p.ReadOnly,
		Rows:     Rows(st, p.Source),
	})
	if err != nil && p.Log != nil {
		p.Log.Warn("render page failed", zap.Error(err))
	}
}

func (p *Pages) mutate(w http.ResponseWriter, r *http.Request) {
	if p.ReadOnly {
		kit.WriteError(w, r, http.StatusForbidden, "read only", nil)
		return
	}

	id := chi.URLParam(r, "id")
	op := chi.URLParam(r, "op")

	st, err := p.Source.GetSnapshot(r.Context())
	if err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	row, ok := Find(Rows(st, p.Source), id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	switch op {
	case opIncrement:
		err = row.Increment(r.Context())
	case opDecrement:
		err = row.Decrement(r.Context())
	default:
		kit.WriteError(w, r, http.StatusNotFound, "unknown operation", map[string]any{"op": op})
		return
	}
	if err != nil {
		if p.Log != nil {
			p.Log.Warn("page mutation failed", zap.Error(err), zap.String("id", id), zap.String("op", op))
		}
		kit.WriteError(w, r, catalog.HTTPStatus(err), err.Error(), map[string]any{"id": id})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

