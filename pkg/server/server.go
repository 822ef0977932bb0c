package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	lerrors "github.com/lacunae/lacuna/internal/errors"
	"github.com/lacunae/lacuna/internal/logger"
	"github.com/lacunae/lacuna/internal/utils"
	"github.com/lacunae/lacuna/pkg/config"
)

// Server handles the IPC for gap filling
type Server struct {
	engine       Engine
	config       *config.Config
	decoder      *msgpack.Decoder
	encoder      *msgpack.Encoder
	logger       *log.Logger
	requestCount int
}

// NewServer creates a server using stdin/stdout for IPC
func NewServer(engine Engine, cfg *config.Config) *Server {
	return NewServerWithIO(engine, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server on arbitrary streams.
func NewServerWithIO(engine Engine, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		engine:  engine,
		config:  cfg,
		decoder: msgpack.NewDecoder(r),
		encoder: msgpack.NewEncoder(w),
		logger:  logger.New("ipc"),
	}
}

// Start announces readiness and serves requests until the input stream ends.
func (s *Server) Start() error {
	s.logger.Debug("Starting Server.")
	s.send(StatusResponse{Status: "ready"})

	for {
		var request Request
		if err := s.decoder.Decode(&request); err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("Input closed", "requests", s.requestCount)
				return nil
			}
			s.logger.Errorf("Decoding request: %v", err)
			s.sendError("", "invalid msgpack request", 400)
			return err
		}
		s.handleRequest(request)
	}
}

// handleRequest dispatches one decoded request by action
func (s *Server) handleRequest(request Request) {
	s.requestCount++
	if request.ID == "" {
		request.ID = uuid.New().String()
	}

	switch strings.ToLower(request.Action) {
	case "fill", "":
		s.handleFill(request)
	case "generate":
		s.handleGenerate(request)
	case "vocab", "vocabulary":
		s.handleVocabulary(request)
	case "health":
		status := "ok"
		if !s.engine.Trained() {
			status = "untrained"
		}
		s.send(StatusResponse{ID: request.ID, Status: status})
	default:
		s.sendError(request.ID, fmt.Sprintf("Unknown action: %s", request.Action), 400)
	}
}

func (s *Server) handleFill(request Request) {
	if err := utils.ValidateQuery(request.Query, s.config.Search.MaxQueryLen); err != nil {
		s.logger.Debug("Rejected query", "id", request.ID, "err", err)
		s.sendError(request.ID, err.Error(), 400)
		return
	}

	beamWidth, topK, exceeded := s.config.Search.Resolve(request.BeamWidth, request.TopK)
	if exceeded {
		s.sendError(request.ID, fmt.Sprintf("beam width exceeds maximum of %d", s.config.Search.MaxBeamWidth), 400)
		return
	}

	start := time.Now()
	results, err := s.engine.Fill(request.Query, beamWidth, topK)
	elapsed := time.Since(start)
	if err != nil {
		s.sendError(request.ID, err.Error(), errorCode(err))
		return
	}

	response := FillResponse{
		ID:        request.ID,
		Results:   make([]FillResult, len(results)),
		Count:     len(results),
		TimeTaken: elapsed.Microseconds(),
	}
	for i, r := range results {
		response.Results[i] = FillResult{Text: r.Text, Score: r.Score, Rank: uint16(i + 1)}
	}
	s.logger.Debugf("Filled '%s' in [ %v ]: %d results", request.Query, elapsed, len(results))
	s.send(response)
}

func (s *Server) handleGenerate(request Request) {
	if request.Count < 1 || (s.config.Server.MaxGenerate > 0 && request.Count > s.config.Server.MaxGenerate) {
		s.sendError(request.ID, fmt.Sprintf("count must be between 1 and %d", s.config.Server.MaxGenerate), 400)
		return
	}

	randomSeed := time.Now().UnixNano()
	if request.RandomSeed != nil {
		randomSeed = *request.RandomSeed
	}

	start := time.Now()
	symbols, err := s.engine.Generate(request.Count, request.Seed, randomSeed)
	if err != nil {
		s.sendError(request.ID, err.Error(), errorCode(err))
		return
	}
	text := strings.Join(utils.StripSymbols(symbols, s.config.Model.BOS, s.config.Model.EOS), "")

	s.send(GenerateResponse{
		ID:        request.ID,
		Symbols:   symbols,
		Text:      text,
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) handleVocabulary(request Request) {
	vocab, err := s.engine.Vocabulary()
	if err != nil {
		s.sendError(request.ID, err.Error(), errorCode(err))
		return
	}
	s.send(VocabularyResponse{ID: request.ID, Vocabulary: vocab.String(), Size: vocab.Len()})
}

// errorCode maps engine errors to protocol codes
func errorCode(err error) int {
	switch {
	case lerrors.IsInvalidBeamConfiguration(err):
		return 400
	case lerrors.IsUntrained(err):
		return 409
	case errors.Is(err, lerrors.ErrNoCandidates):
		return 422
	default:
		return 500
	}
}

// send encodes response onto the output stream
func (s *Server) send(response any) {
	if err := s.encoder.Encode(response); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
