package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/graphstore"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
	"github.com/mohamedthameursassi/saferoute/routing"
)

// RouteRequest names each endpoint either by coordinate or by address.
// Coordinates win when both are given.
type RouteRequest struct {
	Origin        *routing.Coordinate `json:"origin"`
	Destination   *routing.Coordinate `json:"destination"`
	Start         string              `json:"start"`
	End           string              `json:"end"`
	RiskTolerance *float64            `json:"riskTolerance" binding:"omitempty,gte=0,lte=1"`
	Tolerances    []float64           `json:"tolerances" binding:"omitempty,dive,gte=0,lte=1"`
}

type RouteResponse struct {
	RequestID string         `json:"requestId"`
	Route     *routing.Route `json:"route"`
}

type CompareResponse struct {
	RequestID string           `json:"requestId"`
	Routes    []*routing.Route `json:"routes"`
}

type GraphResponse struct {
	Meta     graphstore.Meta `json:"meta"`
	Stats    roadgraph.Stats `json:"stats"`
	LoadedAt time.Time       `json:"loadedAt"`
}

type errorBody struct {
	Kind    routeerr.Kind  `json:"kind"`
	Stage   routeerr.Stage `json:"stage,omitempty"`
	Message string         `json:"message"`
}

type ErrorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"requestId"`
}

func statusFor(kind routeerr.Kind) int {
	switch kind {
	case routeerr.InvalidInput:
		return http.StatusBadRequest
	case routeerr.UnresolvableEndpoint:
		return http.StatusUnprocessableEntity
	case routeerr.NoPathFound:
		return http.StatusNotFound
	case routeerr.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind := routeerr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError && kind != routeerr.Unavailable {
		s.logger.Error("request failed", zap.String("request_id", getRequestID(c)), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{
		Error: errorBody{
			Kind:    kind,
			Stage:   routeerr.StageOf(err),
			Message: routeerr.Message(err),
		},
		RequestID: getRequestID(c),
	})
}

func (s *Server) bind(c *gin.Context) (RouteRequest, error) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, routeerr.New(routeerr.InvalidInput, routeerr.StageQuery, "decode request", err)
	}
	return req, nil
}

// resolve turns a coordinate-or-address pair into a coordinate.
func (s *Server) resolve(ctx context.Context, coord *routing.Coordinate, address, which string) (routing.Coordinate, error) {
	if coord != nil {
		return *coord, nil
	}
	if address == "" {
		return routing.Coordinate{}, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "resolve "+which, "%s coordinate or address is required", which)
	}
	if s.geocoder == nil {
		return routing.Coordinate{}, routeerr.Errorf(routeerr.Unavailable, routeerr.StageGeocode, "resolve "+which, "no geocoder configured")
	}
	p, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return routing.Coordinate{}, err
	}
	return routing.Coordinate{Lat: p.Lat, Lon: p.Lon}, nil
}

func (s *Server) endpoints(ctx context.Context, req RouteRequest) (routing.Coordinate, routing.Coordinate, error) {
	origin, err := s.resolve(ctx, req.Origin, req.Start, "origin")
	if err != nil {
		return routing.Coordinate{}, routing.Coordinate{}, err
	}
	dest, err := s.resolve(ctx, req.Destination, req.End, "destination")
	if err != nil {
		return routing.Coordinate{}, routing.Coordinate{}, err
	}
	return origin, dest, nil
}

func (s *Server) handleRoute(c *gin.Context) {
	start := time.Now()
	route, err := s.route(c)
	recordQuery("route", err, start)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RouteResponse{RequestID: getRequestID(c), Route: route})
}

func (s *Server) route(c *gin.Context) (*routing.Route, error) {
	req, err := s.bind(c)
	if err != nil {
		return nil, err
	}
	snap, err := s.live()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	origin, dest, err := s.endpoints(ctx, req)
	if err != nil {
		return nil, err
	}
	tolerance := s.cfg.Routing.DefaultTolerance
	if req.RiskTolerance != nil {
		tolerance = *req.RiskTolerance
	}
	return snap.router.Route(ctx, routing.Query{Origin: origin, Destination: dest, Tolerance: tolerance})
}

func (s *Server) handleCompare(c *gin.Context) {
	start := time.Now()
	routes, err := s.compare(c)
	recordQuery("compare", err, start)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CompareResponse{RequestID: getRequestID(c), Routes: routes})
}

func (s *Server) compare(c *gin.Context) ([]*routing.Route, error) {
	req, err := s.bind(c)
	if err != nil {
		return nil, err
	}
	snap, err := s.live()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	origin, dest, err := s.endpoints(ctx, req)
	if err != nil {
		return nil, err
	}
	tolerances := req.Tolerances
	if len(tolerances) == 0 {
		tolerances = []float64{0, 1}
	}
	return snap.router.Compare(ctx, origin, dest, tolerances)
}

func (s *Server) handleGraph(c *gin.Context) {
	snap, err := s.live()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, GraphResponse{Meta: snap.meta, Stats: snap.stats, LoadedAt: snap.loadedAt})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	loaded := s.current.Load() != nil
	if !loaded {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "graphLoaded": loaded})
}
