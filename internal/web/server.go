package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/perpbasket/internal/chart"
	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/allocator"
	"github.com/vadiminshakov/perpbasket/internal/services/basket"
	"github.com/vadiminshakov/perpbasket/internal/services/market/collector"
	"github.com/vadiminshakov/perpbasket/internal/services/market/indicators"
	"github.com/vadiminshakov/perpbasket/internal/workspace"
)

const (
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 16
)

var errNoResult = errors.New("basket has not been computed yet")

// Server exposes the basket workspace as a JSON API and serves the HTML UI.
type Server struct {
	Addr   string
	ws     *workspace.Workspace
	market collector.MarketData
	l      *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, ws *workspace.Workspace, market collector.MarketData, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Addr: addr, ws: ws, market: market, l: l}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("http server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/symbols", s.handleSymbols)
	mux.HandleFunc("GET /api/basket", s.handleBasket)
	mux.HandleFunc("DELETE /api/basket", s.handleClear)
	mux.HandleFunc("POST /api/basket/add", s.handleAdd)
	mux.HandleFunc("POST /api/basket/remove", s.handleRemove)
	mux.HandleFunc("POST /api/basket/position", s.handlePosition)
	mux.HandleFunc("POST /api/basket/weight", s.handleWeight)
	mux.HandleFunc("POST /api/basket/rebalance", s.handleRebalance)
	mux.HandleFunc("POST /api/basket/resolution", s.handleResolution)
	mux.HandleFunc("POST /api/basket/range", s.handleRange)
	mux.HandleFunc("POST /api/basket/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/basket/series", s.handleSeries)
	mux.HandleFunc("GET /api/basket/aggregate", s.handleAggregate)
	mux.HandleFunc("GET /api/basket/trend", s.handleTrend)
	mux.HandleFunc("GET /api/basket/chart.png", s.handleChart)
	return s.logRequests(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

type symbolView struct {
	Symbol             string  `json:"symbol"`
	Base               string  `json:"base"`
	LastPrice          string  `json:"lastPrice"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	QuoteVolume        float64 `json:"quoteVolume"`
	Category           string  `json:"category"`
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	var (
		tickers []domain.Ticker
		infos   map[string]domain.SymbolInfo
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		tickers, err = s.market.GetTickers(ctx)
		return err
	})
	g.Go(func() (err error) {
		infos, err = s.market.GetSymbolMetadata(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.l.Error("failed to load symbols", zap.Error(err))
		writeError(w, http.StatusBadGateway, errors.Wrap(err, "failed to load symbols"))
		return
	}

	limit := len(tickers)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.Errorf("invalid limit %q", v))
			return
		}
		limit = min(n, limit)
	}

	out := make([]symbolView, 0, limit)
	for _, t := range tickers[:limit] {
		category := "Unknown"
		if info, ok := infos[t.Symbol]; ok {
			category = info.Category
		}
		out = append(out, symbolView{
			Symbol:             t.Symbol,
			Base:               domain.BaseAsset(t.Symbol),
			LastPrice:          domain.FormatPrice(t.LastPrice, t.Symbol, infos),
			PriceChangePercent: t.PriceChangePercent,
			QuoteVolume:        t.QuoteVolume(),
			Category:           category,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBasket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.ws.Clear()
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

type selectionRequest struct {
	Symbol   string          `json:"symbol"`
	Position domain.Position `json:"position"`
	Weight   *float64        `json:"weight"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.ws.Add(req.Symbol, req.Position)
	s.writeEdit(w, snap, err)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.ws.Remove(req.Symbol)
	s.writeEdit(w, snap, err)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.ws.ChangePosition(req.Symbol, req.Position)
	s.writeEdit(w, snap, err)
}

func (s *Server) handleWeight(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Weight == nil {
		writeError(w, http.StatusBadRequest, errors.New("weight is required"))
		return
	}
	snap, err := s.ws.ChangeWeight(req.Symbol, *req.Weight)
	s.writeEdit(w, snap, err)
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.Rebalance())
}

func (s *Server) writeEdit(w http.ResponseWriter, snap workspace.Snapshot, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, allocator.ErrUnknownSymbol):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func (s *Server) handleResolution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resolution domain.Resolution `json:"resolution"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.ws.SetResolution(req.Resolution); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

// handleRange sets the candle window in unix milliseconds; {} clears it.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	var req domain.CandleRange
	if !decode(w, r, &req) {
		return
	}
	if err := s.ws.SetRange(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_, err := s.ws.Refresh(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.ws.State())
	case errors.Is(err, workspace.ErrSuperseded):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, basket.ErrDataFetch):
		writeJSON(w, http.StatusBadGateway, s.ws.State())
	default:
		s.l.Error("basket refresh failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, s.ws.State())
	}
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ws.State())
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	side := domain.Position(r.URL.Query().Get("side"))
	if !side.IsValid() {
		writeError(w, http.StatusBadRequest, errors.Wrapf(allocator.ErrInvalidPosition, "side %q", side))
		return
	}
	res, ok := s.result(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Side domain.Position `json:"side"`
		Data []domain.Point  `json:"data"`
	}{side, res.Aggregate(side)})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	period := indicators.DefaultPeriod
	if v := r.URL.Query().Get("period"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.Errorf("invalid period %q", v))
			return
		}
		period = n
	}
	res, ok := s.result(w)
	if !ok {
		return
	}

	overlay, err := indicators.Compute(res.Basket, period)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, overlay)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.result(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	width, _ := strconv.Atoi(q.Get("width"))
	height, _ := strconv.Atoi(q.Get("height"))

	buf, err := chart.Render(res, chart.Options{Width: width, Height: height})
	if err != nil {
		if errors.Is(err, chart.ErrNoData) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.l.Error("failed to render chart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

func (s *Server) result(w http.ResponseWriter) (*basket.Result, bool) {
	res := s.ws.State().Result
	if res == nil {
		writeError(w, http.StatusNotFound, errNoResult)
		return nil, false
	}
	return res, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
