package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"PriceSim/internal/domain/models"
	domrepo "PriceSim/internal/domain/repository"
	"PriceSim/internal/service/cache"
	xhttp "PriceSim/pkg/http"
	xlogger "PriceSim/pkg/logger"
	"PriceSim/pkg/objstore"
	"PriceSim/pkg/util"
)

const latestCacheKey = "latest"

// ArtifactReader is the read side of the artifact store.
type ArtifactReader interface {
	Latest(ctx context.Context) (*models.SimulationArtifact, error)
}

// SimulationEchoHandler serves the latest published artifact and the
// history readiness signal.
type SimulationEchoHandler struct {
	logger    *xlogger.Logger
	artifacts ArtifactReader
	history   domrepo.HistoryRepository
	assets    []string
	capacity  int
	cache     *cache.TTLCache[*models.SimulationArtifact]
	ttl       time.Duration
	now       func() time.Time
}

// NewSimulationEchoHandler creates the handler. assets and capacity describe
// the tracked universe and are reported by Readiness before the first
// collection has written any history.
func NewSimulationEchoHandler(logger *xlogger.Logger, artifacts ArtifactReader, history domrepo.HistoryRepository, assets []string, capacity int, ttl time.Duration) *SimulationEchoHandler {
	return &SimulationEchoHandler{
		logger:    logger,
		artifacts: artifacts,
		history:   history,
		assets:    assets,
		capacity:  capacity,
		cache:     cache.NewTTLCache[*models.SimulationArtifact](),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (h *SimulationEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/simulation/latest", h.Latest)
	g.GET("/simulation/:asset", h.Asset)
	g.GET("/simulation/:asset/price", h.Price)
	g.GET("/history/readiness", h.Readiness)
}

func (h *SimulationEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SimulationEchoHandler) Latest(c echo.Context) error {
	art, err := h.latest(c.Request().Context())
	if err != nil {
		return h.fail(c, "latest", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=15")
	return xhttp.SuccessResponse(c, art)
}

func (h *SimulationEchoHandler) Asset(c echo.Context) error {
	req := &models.AssetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	art, err := h.latest(c.Request().Context())
	if err != nil {
		return h.fail(c, "asset", err)
	}
	r, ok := art.Assets[req.Asset]
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %s is not tracked", req.Asset))
	}
	return xhttp.SuccessResponse(c, models.AssetView{
		Asset:         req.Asset,
		ArtifactID:    art.ID,
		GeneratedAt:   art.GeneratedAt,
		Present:       r.IsPresent(),
		Reason:        r.Reason,
		Path:          r.Path,
		LowConfidence: art.LowConfidence,
	})
}

// Price returns the simulated price at `at` (RFC3339 or unix seconds,
// default now).
func (h *SimulationEchoHandler) Price(c echo.Context) error {
	req := &models.PriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at := h.now().UTC()
	if req.At != "" {
		t, ok := util.ParseTime(req.At)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("at", "at must be RFC3339 or unix seconds"))
		}
		at = t
	}

	art, err := h.latest(c.Request().Context())
	if err != nil {
		return h.fail(c, "price", err)
	}
	r, ok := art.Assets[req.Asset]
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %s is not tracked", req.Asset))
	}
	if !r.IsPresent() {
		return xhttp.AppErrorResponse(c,
			xhttp.NotFoundErrorf("no simulated path for %s", req.Asset).WithParam("reason", r.Reason))
	}
	return xhttp.SuccessResponse(c, models.PriceView{
		Asset:      req.Asset,
		At:         at,
		Price:      r.Path.PriceAt(at),
		ArtifactID: art.ID,
		InHorizon:  !at.Before(art.HorizonStart) && !at.After(art.HorizonEnd),
	})
}

// Readiness reports the persisted readiness signal. Before the first
// collection every tracked asset counts as not full.
func (h *SimulationEchoHandler) Readiness(c echo.Context) error {
	doc, err := h.history.Load(c.Request().Context())
	if errors.Is(err, objstore.ErrNotFound) {
		return xhttp.SuccessResponse(c, models.ReadinessView{
			Readiness: models.Readiness{TotalAssets: len(h.assets)},
			Capacity:  h.capacity,
		})
	}
	if err != nil {
		return h.fail(c, "readiness", err)
	}
	return xhttp.SuccessResponse(c, models.ReadinessView{
		Readiness:   doc.Stats,
		LastUpdated: doc.LastUpdated,
		Capacity:    doc.Capacity,
	})
}

func (h *SimulationEchoHandler) latest(ctx context.Context) (*models.SimulationArtifact, error) {
	return h.cache.GetOrLoad(ctx, latestCacheKey, h.ttl, h.artifacts.Latest)
}

func (h *SimulationEchoHandler) fail(c echo.Context, op string, err error) error {
	if errors.Is(err, objstore.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("nothing has been published yet"))
	}
	h.logger.Error("read api error", xlogger.String("op", op), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to read store").WithError(err))
}
