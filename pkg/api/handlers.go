// Package api exposes gap filling over HTTP with gin.
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lacunae/lacuna/internal/utils"
	"github.com/lacunae/lacuna/pkg/config"
	"github.com/lacunae/lacuna/pkg/server"
)

// API holds dependencies for API handlers, the trained engine and its limits.
type API struct {
	engine server.Engine
	config *config.Config
}

// NewAPI creates a new API handler structure.
func NewAPI(engine server.Engine, cfg *config.Config) *API {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &API{engine: engine, config: cfg}
}

// SetupRoutes registers the middleware and every route of the lacuna API.
func SetupRoutes(router *gin.Engine, engine server.Engine, cfg *config.Config) {
	apiHandler := NewAPI(engine, cfg)

	router.Use(RequestIDMiddleware())
	router.Use(RequestSizeLimitMiddleware(int64(apiHandler.config.Server.MaxBodyBytes)))

	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/vocabulary", apiHandler.VocabularyHandler)
	router.POST("/fill", apiHandler.FillHandler)
	router.POST("/generate", apiHandler.GenerateHandler)
}

// FillRequest is the body of POST /fill. Zero beam_width and top_k take the configured defaults.
type FillRequest struct {
	Query     string `json:"query"`
	BeamWidth int    `json:"beam_width"`
	TopK      int    `json:"top_k"`
}

// FillResult is one ranked reconstruction.
type FillResult struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// FillResponse answers POST /fill.
type FillResponse struct {
	Query     string       `json:"query"`
	Results   []FillResult `json:"results"`
	Count     int          `json:"count"`
	TookUs    int64        `json:"took_us"`
	RequestID string       `json:"request_id"`
}

// GenerateRequest is the body of POST /generate. A missing random_seed draws one from the clock.
type GenerateRequest struct {
	Count      int    `json:"count"`
	Seed       string `json:"seed"`
	RandomSeed *int64 `json:"random_seed"`
}

// GenerateResponse answers POST /generate.
type GenerateResponse struct {
	Symbols    []string `json:"symbols"`
	Text       string   `json:"text"`
	RandomSeed int64    `json:"random_seed"`
	RequestID  string   `json:"request_id"`
}

// FillHandler handles gap filling requests.
func (api *API) FillHandler(c *gin.Context) {
	var req FillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if err := utils.ValidateQuery(req.Query, api.config.Search.MaxQueryLen); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error())
		return
	}

	beamWidth, topK, exceeded := api.config.Search.Resolve(req.BeamWidth, req.TopK)
	if exceeded {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidBeam,
			fmt.Sprintf("beam width exceeds maximum of %d", api.config.Search.MaxBeamWidth))
		return
	}

	start := time.Now()
	results, err := api.engine.Fill(req.Query, beamWidth, topK)
	if err != nil {
		SendEngineError(c, "fill", err)
		return
	}

	response := FillResponse{
		Query:     req.Query,
		Results:   make([]FillResult, len(results)),
		Count:     len(results),
		TookUs:    time.Since(start).Microseconds(),
		RequestID: requestID(c),
	}
	for i, r := range results {
		response.Results[i] = FillResult{Text: r.Text, Score: r.Score, Rank: i + 1}
	}
	c.JSON(http.StatusOK, response)
}

// GenerateHandler samples text from the model.
func (api *API) GenerateHandler(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	maxCount := api.config.Server.MaxGenerate
	if req.Count < 1 || (maxCount > 0 && req.Count > maxCount) {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest,
			fmt.Sprintf("count must be between 1 and %d", maxCount))
		return
	}

	randomSeed := time.Now().UnixNano()
	if req.RandomSeed != nil {
		randomSeed = *req.RandomSeed
	}

	symbols, err := api.engine.Generate(req.Count, req.Seed, randomSeed)
	if err != nil {
		SendEngineError(c, "generate", err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		Symbols:    symbols,
		Text:       strings.Join(utils.StripSymbols(symbols, api.config.Model.BOS, api.config.Model.EOS), ""),
		RandomSeed: randomSeed,
		RequestID:  requestID(c),
	})
}

// VocabularyHandler lists the trained symbols.
func (api *API) VocabularyHandler(c *gin.Context) {
	vocab, err := api.engine.Vocabulary()
	if err != nil {
		SendEngineError(c, "vocabulary", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vocabulary": vocab.String(),
		"symbols":    vocab.Symbols(),
		"size":       vocab.Len(),
		"request_id": requestID(c),
	})
}

// HealthCheckHandler provides a simple health check endpoint
func (api *API) HealthCheckHandler(c *gin.Context) {
	status := "healthy"
	if !api.engine.Trained() {
		status = "untrained"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"service":    "lacuna",
		"trained":    api.engine.Trained(),
		"timestamp":  fmt.Sprintf("%d", time.Now().Unix()),
		"request_id": requestID(c),
	})
}
