package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EntryPoint is the path every collection links back to.
const EntryPoint = "/health"

// Links holds the generated RFC 8288 link headers keyed by operation path.
type Links struct {
	byPath map[string][]string
}

// NewLinks returns an empty link set. Its Transformer can be installed
// before the routes exist; Build fills it in afterwards.
func NewLinks() *Links {
	return &Links{byPath: map[string][]string{}}
}

// AutoLinks builds a link set for api.
func AutoLinks(api huma.API, skipTags ...string) *Links {
	l := NewLinks()
	l.Build(api, skipTags...)
	return l
}

// Build walks the OpenAPI paths and derives hypermedia links between them.
// Operations tagged with one of skipTags (e.g. SSE streams) are left out.
// Call after all routes are registered and before serving.
func (l *Links) Build(api huma.API, skipTags ...string) {
	oapi := api.OpenAPI()
	clear(l.byPath)

	// Collection paths have no {param}; item paths do.
	var collections, items []string
	for p, pi := range oapi.Paths {
		if slices.ContainsFunc(primaryTags(pi), func(t string) bool { return slices.Contains(skipTags, t) }) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	// Item to its parent collection.
	for _, item := range items {
		if parent := path.Dir(item); oapi.Paths[parent] != nil {
			l.add(item, parent, "collection")
			l.add(item, parent, "up")
		}
	}

	// Collection to item template, and up to the entry point.
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.add(coll, item, "item")
			}
		}
		if coll != EntryPoint {
			l.add(coll, EntryPoint, "up")
		}
	}

	// Write methods become edit rels.
	for _, p := range append(slices.Clone(collections), items...) {
		pi := oapi.Paths[p]
		if pi.Put != nil || pi.Patch != nil {
			l.add(p, p, "edit")
		}
	}

	// The entry point lists every collection plus the API description.
	for _, coll := range collections {
		if coll != EntryPoint {
			l.add(EntryPoint, coll, lastSegment(coll))
		}
	}
	l.add(EntryPoint, "/openapi.json", "describedby")
	l.add(EntryPoint, "/openapi.json", "service-desc")
	l.add(EntryPoint, "/docs", "service-doc")
	if oapi.Paths["/api/v1/query"] != nil {
		l.add(EntryPoint, "/api/v1/query", "search")
	}

	// Document the links on the operations themselves.
	for p, pi := range oapi.Paths {
		headers, ok := l.byPath[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}
}

// For returns the link headers generated for an operation path.
func (l *Links) For(opPath string) []string {
	if l == nil {
		return nil
	}
	return l.byPath[opPath]
}

// Root returns the entry point links, for non-Huma handlers.
func (l *Links) Root() []string {
	return l.For(EntryPoint)
}

// Transformer returns a Huma Transformer that injects the generated link
// headers at runtime, plus self, pagination and action links taken from the
// response.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(l.byPath[from], val) {
		l.byPath[from] = append(l.byPath[from], val)
	}
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success
// response so the document carries the relationships too.
func injectResponseLinks(op *huma.Operation, headers []string) {
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

// parseLinkHeader splits `<url>; rel="name"`.
func parseLinkHeader(h string) (rel, href string) {
	target, params, ok := strings.Cut(h, ";")
	if !ok {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(target), "<>")
	params = strings.TrimSpace(params)
	if v, ok := strings.CutPrefix(params, `rel="`); ok {
		rel, _, _ = strings.Cut(v, `"`)
	}
	return rel, href
}
