package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ogero/stremio-cartoony/internal/common"
	"github.com/ogero/stremio-cartoony/pkg/cartoony"
	"github.com/ogero/stremio-cartoony/pkg/stremio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var manifest = stremio.Manifest{
	ID:          "net.cartoony.go",
	Version:     "0.0.1",
	Name:        cartoony.Name,
	Description: "Cartoony Arabic cartoons addon",
	Types:       []string{"movie", "series"},
	Catalogs: []stremio.CatalogItem{
		{ID: common.CatalogID, Type: "series", Name: cartoony.Name, Extra: catalogExtra},
		{ID: common.CatalogID, Type: "movie", Name: cartoony.Name, Extra: catalogExtra},
	},
	IDPrefixes: []string{common.IDPrefix},
	Resources:  []string{"catalog", "meta", "stream"},
}

var catalogExtra = []stremio.CatalogItemExtra{{Name: "search"}, {Name: "skip"}}

// App represents the main application structure that holds the Stremio service and addon host information.
type App struct {
	StremioService StremioService
	AddonHost      string
}

/*
NewApp creates a new instance of the App struct.

Parameters:
  - stremioService: The service used to answer Stremio resources.
  - addonHost: The host address for the addon.

Returns:
  - A pointer to the newly created App instance.
*/
func NewApp(stremioService StremioService, addonHost string) (*App, error) {
	return &App{
		StremioService: stremioService,
		AddonHost:      addonHost,
	}, nil
}

// Routes mounts the addon handlers on r.
func (a *App) Routes(r chi.Router) {
	r.Get("/manifest.json", a.ManifestHandler)
	r.Get("/catalog/{type}/{id}.json", a.CatalogHandler)
	r.Get("/catalog/{type}/{id}/*", a.CatalogHandler)
	r.Get("/meta/{type}/{id}.json", a.MetaHandler)
	r.Get("/stream/{type}/{id}.json", a.StreamHandler)
	r.HandleFunc("/connection/websocket", a.WebsocketHandler)
}

/*
ManifestHandler serves the manifest for the addon.

This method writes the manifest as a JSON response to the HTTP writer.
*/
func (a *App) ManifestHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "ManifestHandler")

	w.Header().Set("Content-Type", "application/json")

	b, _ := json.Marshal(manifest)
	_, err := w.Write(b)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

/*
CatalogHandler handles catalog and search requests.

The optional extra path segment carries "search" and "skip" as a query string, ".json" suffixed.
*/
func (a *App) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.InfoContext(ctx, "CatalogHandler")

	paramsType := chi.URLParam(r, "type")
	if err := common.ValidateContentType(paramsType); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateContentType", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("params.type", paramsType))

	if err := common.ValidateCatalogID(chi.URLParam(r, "id")); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateCatalogID", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	extra, err := url.ParseQuery(strings.TrimSuffix(chi.URLParam(r, "*"), ".json"))
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to url.ParseQuery", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	skip, err := common.ValidateSkip(extra.Get("skip"))
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateSkip", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var metas []stremio.MetaPreview
	if search := extra.Get("search"); search != "" {
		span.SetAttributes(attribute.String("params.search", search))
		metas, err = a.StremioService.Search(ctx, paramsType, search)
	} else {
		metas, err = a.StremioService.GetCatalog(ctx, paramsType, skip)
	}
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to StremioService catalog", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, r, stremio.Metas{Metas: metas})
}

/*
MetaHandler handles meta requests.

This method validates the request parameters, loads the item details and writes them as a JSON response.
*/
func (a *App) MetaHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "MetaHandler")

	paramsType := chi.URLParam(r, "type")
	if err := common.ValidateContentType(paramsType); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateContentType", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	paramsID, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to url.PathUnescape", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.id", paramsID))

	meta, err := a.StremioService.GetMeta(ctx, paramsType, paramsID)
	if errors.Is(err, ErrInvalidID) {
		common.Log.WarnContext(ctx, "Failed to StremioService.GetMeta", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	} else if err != nil {
		common.Log.ErrorContext(ctx, "Failed to StremioService.GetMeta", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=21600")
	writeJSON(w, r, stremio.MetaResponse{Meta: *meta})
}

/*
StreamHandler handles stream requests.

Movies are requested with their meta id, episodes with their video id. Both encode the page to scrape.
*/
func (a *App) StreamHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.InfoContext(ctx, "StreamHandler")

	paramsType := chi.URLParam(r, "type")
	if err := common.ValidateContentType(paramsType); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateContentType", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	paramsID, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to url.PathUnescape", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.id", paramsID))

	streams, err := a.StremioService.GetStreams(ctx, paramsType, paramsID)
	if errors.Is(err, ErrInvalidID) {
		common.Log.WarnContext(ctx, "Failed to StremioService.GetStreams", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	} else if err != nil {
		common.Log.ErrorContext(ctx, "Failed to StremioService.GetStreams", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, stremio.Streams{Streams: streams})
}

// WebsocketHandler handles WebSocket connections
func (a *App) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "WebsocketHandler")

	a.StremioService.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	ctx := r.Context()

	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		trace.SpanFromContext(ctx).RecordError(err)
		return
	}
}
