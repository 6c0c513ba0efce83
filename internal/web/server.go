package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/blm-labs/blm/internal/engine"
	"github.com/blm-labs/blm/internal/logger"
	"github.com/blm-labs/blm/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes read-only analytics over HTTP.
type WebServer struct {
	router *mux.Router
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/summary", ws.handleGetSummary).Methods("GET")
	api.HandleFunc("/value-history", ws.handleGetValueHistory).Methods("GET")
	api.HandleFunc("/daily-pnl", ws.handleGetDailyPnL).Methods("GET")
	api.HandleFunc("/operations", ws.handleGetOperations).Methods("GET")
	api.HandleFunc("/claimed-fees", ws.handleGetClaimedFees).Methods("GET")
	api.HandleFunc("/price-history", ws.handleGetPriceHistory).Methods("GET")
	api.HandleFunc("/parameters", ws.handleGetParameters).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	var tickInfo map[string]interface{}
	if tick, err := state.GetCurrentTickNumber(); err == nil {
		tickInfo = map[string]interface{}{
			"current_tick": tick,
		}
	} else {
		tickInfo = map[string]interface{}{
			"current_tick": 0,
		}
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "blm-bucket-liquidity-manager",
			"version": "1.0.0",
		},
		"blm_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"tick_info":        tickInfo,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetSummary returns manager summary statistics
func (ws *WebServer) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := state.GetSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetValueHistory returns portfolio value points over a trailing window
func (ws *WebServer) handleGetValueHistory(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		if parsed, err := strconv.Atoi(hoursStr); err == nil && parsed > 0 && parsed <= 720 {
			hours = parsed
		}
	}

	points, err := state.GetValueHistory(hours)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get value history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve value history")
		return
	}

	response := map[string]interface{}{
		"points": points,
		"count":  len(points),
		"hours":  hours,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetDailyPnL returns the recent daily aggregates
func (ws *WebServer) handleGetDailyPnL(w http.ResponseWriter, r *http.Request) {
	days := 30
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if parsed, err := strconv.Atoi(daysStr); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}

	aggregates, err := state.GetRecentDailyAggregates(days)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get daily aggregates")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve daily pnl")
		return
	}

	response := map[string]interface{}{
		"days":       days,
		"aggregates": aggregates,
		"count":      len(aggregates),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetOperations returns recent rebalance operations
func (ws *WebServer) handleGetOperations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	operations, err := state.GetRecentOperations(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get operations")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve operations")
		return
	}

	response := map[string]interface{}{
		"operations": operations,
		"count":      len(operations),
		"limit":      limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetClaimedFees returns recent claimed-fee records
func (ws *WebServer) handleGetClaimedFees(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	fees, err := state.GetRecentClaimedFees(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get claimed fees")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve claimed fees")
		return
	}

	response := map[string]interface{}{
		"claimed_fees": fees,
		"count":        len(fees),
		"limit":        limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPriceHistory returns regime-transition price records
func (ws *WebServer) handleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	positionKey := r.URL.Query().Get("position")

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	records, err := state.GetPriceHistory(positionKey, limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get price history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve price history")
		return
	}

	response := map[string]interface{}{
		"records": records,
		"count":   len(records),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetParameters returns the active strategy parameters
func (ws *WebServer) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	params, err := state.LoadActiveStrategyParameters(engine.DEFAULT_STRATEGY_CONFIG_NAME)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get strategy parameters")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve strategy parameters")
		return
	}

	response := map[string]interface{}{
		"parameters": params,
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
