package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geo311/internal/service"
)

// Source describes the feature service the cases come from.
type Source struct {
	Endpoint string `json:"endpoint" doc:"WFS endpoint" example:"https://geoserver.danielmyers.xyz/geoserver/census/ows"`
	TypeName string `json:"typeName" doc:"Feature type" example:"census:castro_311"`
	PageSize int    `json:"pageSize" doc:"Features requested per page" example:"1000"`
}

type InfoHandler struct {
	version string
	source  Source
	dbOK    bool
	svc     *service.CaseService
}

func NewInfoHandler(version string, source Source, dbOK bool, svc *service.CaseService) *InfoHandler {
	return &InfoHandler{version: version, source: source, dbOK: dbOK, svc: svc}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string             `json:"name" doc:"Service name"`
	Version  string             `json:"version" doc:"Service version"`
	Source   Source             `json:"source" doc:"Upstream feature service"`
	DB       bool               `json:"db" doc:"Whether the analytics database is available"`
	Dataset  service.LoadStatus `json:"dataset" doc:"State of the loaded dataset"`
	Features []string           `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"wfs", "geojson", "mvt", "sse"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "geo311",
		Version:  h.version,
		Source:   h.source,
		DB:       h.dbOK,
		Dataset:  h.svc.Status(),
		Features: features,
	}}, nil
}
