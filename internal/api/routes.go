// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geo311/internal/cases"
	"github.com/joeblew999/geo311/internal/humastar"
	"github.com/joeblew999/geo311/internal/proj"
	"github.com/joeblew999/geo311/internal/service"
	"github.com/joeblew999/geo311/internal/session"
	"github.com/joeblew999/geo311/internal/tiler"
)

const (
	contentGeoJSON = "application/geo+json"
	contentMVT     = "application/vnd.mapbox-vector-tile"
)

// Types

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
	Loaded  bool   `json:"loaded" doc:"Whether the case dataset is available"`
}

type CaseIDInput struct {
	ID string `path:"id" doc:"Case identifier" example:"17000123"`
}

type PageInput struct {
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Index of the first case"`
	Limit  int `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Page size"`
}

type CategoriesInput struct {
	Top int `query:"top" default:"0" minimum:"0" doc:"Return only the N largest categories (0 for all)"`
}

type VisibleInput struct {
	Projected bool `query:"projected" default:"false" doc:"Return WGS84 coordinates instead of Web Mercator"`
}

type ProjectInput struct {
	X float64 `query:"x" required:"true" doc:"Easting in EPSG:3857 metres" example:"-13627636.33"`
	Y float64 `query:"y" required:"true" doc:"Northing in EPSG:3857 metres" example:"4548279.56"`
}

type ProjectBody struct {
	Lat float64 `json:"lat" doc:"Latitude (EPSG:4326)"`
	Lon float64 `json:"lon" doc:"Longitude (EPSG:4326)"`
}

type SelectInput struct {
	Body struct {
		Category string `json:"category" doc:"Request type to show; empty selects uncategorized cases" example:"Graffiti"`
	}
}

type TileInput struct {
	Z int `path:"z" doc:"Zoom level" example:"12"`
	X int `path:"x" doc:"Tile column" example:"655"`
	Y int `path:"y" doc:"Tile row" example:"1583"`
}

// GeoJSONOutput carries a pre-encoded FeatureCollection.
type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type TileOutput struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// SelectionView is the selection state with its follow-up actions.
type SelectionView struct {
	service.SelectionBody
}

// Actions offers a reset while a category is selected.
func (v SelectionView) Actions() []humastar.Action {
	if !v.Active {
		return nil
	}
	return []humastar.Action{{
		Rel:    "reset",
		Href:   "/api/v1/selection",
		Method: http.MethodDelete,
		Title:  "Show all categories",
	}}
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc     *service.CaseService
	version string
}

func NewAPIHandler(svc *service.CaseService, version string) *APIHandler {
	return &APIHandler{svc: svc, version: version}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterCases registers the dataset routes.
func (h *APIHandler) RegisterCases(api huma.API) {
	huma.Get(api, "/api/v1/cases", h.ListCases, huma.OperationTags("cases"))
	huma.Get(api, "/api/v1/cases/geojson", h.GetCollection, huma.OperationTags("cases"))
	huma.Get(api, "/api/v1/cases/{id}", h.GetCase, huma.OperationTags("cases"))
	huma.Register(api, huma.Operation{
		OperationID: "reload-cases",
		Method:      http.MethodPost,
		Path:        "/api/v1/reload",
		Summary:     "Reload all cases from the feature service",
		Tags:        []string{"cases"},
	}, h.Reload)
}

// RegisterSummary registers the aggregate routes.
func (h *APIHandler) RegisterSummary(api huma.API) {
	huma.Get(api, "/api/v1/stats", h.GetStats, huma.OperationTags("summary"))
	huma.Get(api, "/api/v1/categories", h.GetCategories, huma.OperationTags("summary"))
}

// RegisterView registers the map view routes.
func (h *APIHandler) RegisterView(api huma.API) {
	huma.Get(api, "/api/v1/visible", h.GetVisible, huma.OperationTags("view"))
	huma.Get(api, "/api/v1/bounds", h.GetBounds, huma.OperationTags("view"))
	huma.Get(api, "/api/v1/project", h.Project, huma.OperationTags("view"))
	huma.Get(api, "/api/v1/tiles/{z}/{x}/{y}", h.GetTile, huma.OperationTags("view"))
}

// RegisterSelection registers the category selection routes.
func (h *APIHandler) RegisterSelection(api huma.API) {
	huma.Get(api, "/api/v1/selection", h.GetSelection, huma.OperationTags("view"))
	huma.Put(api, "/api/v1/selection", h.PutSelection, huma.OperationTags("view"))
	huma.Delete(api, "/api/v1/selection", h.DeleteSelection, huma.OperationTags("view"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{
		Status:  "ok",
		Version: h.version,
		Loaded:  h.svc.Status().Loaded,
	}}, nil
}

func (h *APIHandler) ListCases(ctx context.Context, input *PageInput) (*struct {
	Body humastar.PageBody[service.CaseDetail]
}, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	page := humastar.Paginate(s.Collection().Features, input.Offset, input.Limit)
	details := make([]service.CaseDetail, len(page.Data))
	for i, f := range page.Data {
		details[i] = service.DetailOf(f)
	}
	return &struct {
		Body humastar.PageBody[service.CaseDetail]
	}{Body: humastar.PageBody[service.CaseDetail]{
		Total:  page.Total,
		Offset: page.Offset,
		Limit:  page.Limit,
		Data:   details,
	}}, nil
}

func (h *APIHandler) GetCollection(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	return geoJSON(s.Collection())
}

func (h *APIHandler) GetCase(ctx context.Context, input *CaseIDInput) (*struct{ Body service.CaseDetail }, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	f, ok := cases.Find(s.Collection(), input.ID)
	if !ok {
		return nil, huma.Error404NotFound("case not found")
	}
	return &struct{ Body service.CaseDetail }{Body: service.DetailOf(f)}, nil
}

func (h *APIHandler) Reload(ctx context.Context, input *struct{}) (*struct{ Body service.LoadStatus }, error) {
	// A started load runs to completion even if the caller goes away.
	err := h.svc.Load(context.WithoutCancel(ctx))
	switch {
	case errors.Is(err, service.ErrLoadInProgress):
		return nil, huma.Error409Conflict(err.Error())
	case err != nil:
		return nil, huma.Error502BadGateway("reload failed", err)
	}
	return &struct{ Body service.LoadStatus }{Body: h.svc.Status()}, nil
}

func (h *APIHandler) GetStats(ctx context.Context, input *struct{}) (*struct{ Body cases.Stats }, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	return &struct{ Body cases.Stats }{Body: s.Stats()}, nil
}

func (h *APIHandler) GetCategories(ctx context.Context, input *CategoriesInput) (*struct{ Body []cases.CategoryCount }, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	return &struct{ Body []cases.CategoryCount }{Body: cases.TopCategories(s.Rankings(), input.Top)}, nil
}

func (h *APIHandler) GetVisible(ctx context.Context, input *VisibleInput) (*GeoJSONOutput, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	fc := s.Visible()
	if input.Projected {
		fc = proj.ProjectCollection(fc)
	}
	return geoJSON(fc)
}

func (h *APIHandler) GetBounds(ctx context.Context, input *struct{}) (*struct{ Body service.BoundsBody }, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	return &struct{ Body service.BoundsBody }{Body: service.BoundsOf(s)}, nil
}

func (h *APIHandler) Project(ctx context.Context, input *ProjectInput) (*struct{ Body ProjectBody }, error) {
	lat, lon := proj.Project(input.X, input.Y)
	return &struct{ Body ProjectBody }{Body: ProjectBody{Lat: lat, Lon: lon}}, nil
}

func (h *APIHandler) GetTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	t, err := tiler.TileAt(input.Z, input.X, input.Y)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	data, err := tiler.Tile(s.Visible(), t)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to encode tile", err)
	}
	if data == nil {
		return &TileOutput{Status: http.StatusNoContent}, nil
	}
	return &TileOutput{Status: http.StatusOK, ContentType: contentMVT, Body: data}, nil
}

func (h *APIHandler) GetSelection(ctx context.Context, input *struct{}) (*struct{ Body SelectionView }, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}
	return selectionOutput(s), nil
}

func (h *APIHandler) PutSelection(ctx context.Context, input *SelectInput) (*struct{ Body SelectionView }, error) {
	s, err := h.svc.Select(input.Body.Category)
	if err != nil {
		return nil, sessionError(err)
	}
	return selectionOutput(s), nil
}

func (h *APIHandler) DeleteSelection(ctx context.Context, input *struct{}) (*struct{ Body SelectionView }, error) {
	s, err := h.svc.Reset()
	if err != nil {
		return nil, sessionError(err)
	}
	return selectionOutput(s), nil
}

// helpers

func (h *APIHandler) session() (session.Session, error) {
	s, err := h.svc.Session()
	if err != nil {
		return session.Session{}, sessionError(err)
	}
	return s, nil
}

func sessionError(err error) error {
	if errors.Is(err, service.ErrNotLoaded) {
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError("session unavailable", err)
}

func selectionOutput(s session.Session) *struct{ Body SelectionView } {
	return &struct{ Body SelectionView }{Body: SelectionView{service.SelectionOf(s)}}
}

func geoJSON(fc *geojson.FeatureCollection) (*GeoJSONOutput, error) {
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to encode features", err)
	}
	return &GeoJSONOutput{ContentType: contentGeoJSON, Body: data}, nil
}

// RegisterRoutes registers all REST API routes on the given Huma API.
func RegisterRoutes(api huma.API, svc *service.CaseService, version string) {
	huma.AutoRegister(api, NewAPIHandler(svc, version))
}
