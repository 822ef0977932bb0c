// Package cli handles cmd line queries for filling gaps interactively, mainly for DBG and testing
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lacunae/lacuna/internal/logger"
	"github.com/lacunae/lacuna/internal/utils"
	"github.com/lacunae/lacuna/pkg/lacuna"
)

// Filler is the part of a trained lacuna the CLI uses.
type Filler interface {
	Fill(query string, beamWidth, topK int) ([]lacuna.Result, error)
}

// InputHandler reads damaged lines from stdin and prints their best reconstructions.
type InputHandler struct {
	filler       Filler
	out          *log.Logger
	mask         string
	beamWidth    int
	limit        int
	maxQueryLen  int
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(filler Filler, beamWidth, limit, maxQueryLen int) *InputHandler {
	return &InputHandler{
		filler:      filler,
		out:         log.Default(),
		mask:        "?",
		beamWidth:   beamWidth,
		limit:       limit,
		maxQueryLen: maxQueryLen,
	}
}

// SetMask sets the gap marker counted in debug output.
func (h *InputHandler) SetMask(mask string) {
	h.mask = mask
}

// SetOutput redirects result printing to w.
func (h *InputHandler) SetOutput(w io.Writer) {
	h.out = logger.NewWithConfig(w, "", log.InfoLevel, false, false, log.TextFormatter)
}

// Start begins the interface loop on stdin.
func (h *InputHandler) Start() error {
	h.out.Print("Lacuna CLI [BETA]")
	h.out.Print("type a line with '?' for each missing character and press Enter (Ctrl+C to exit):")
	return h.Run(os.Stdin)
}

// Run reads one query per line from r until it is exhausted.
// Blank lines are skipped, a clean EOF is not an error.
func (h *InputHandler) Run(r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		query := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(query) != "" {
			h.handleInput(query)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handleInput fills a single query and prints the ranked results.
func (h *InputHandler) handleInput(query string) {
	h.requestCount++

	if err := utils.ValidateQuery(query, h.maxQueryLen); err != nil {
		log.Errorf("Invalid query: %v", err)
		return
	}

	start := time.Now()
	log.Debug("Processing request for", "query", query, "gaps", utils.CountGaps(query, h.mask))

	results, err := h.filler.Fill(query, h.beamWidth, min(h.limit, h.beamWidth))
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for query '%s'", elapsed, query)

	if err != nil {
		log.Errorf("Fill failed for '%s': %v", query, err)
		return
	}

	h.out.Printf("Found %d reconstructions for '%s':", len(results), query)
	for i, r := range results {
		text := fmt.Sprintf("\033[38;5;75m%s\033[0m", r.Text)
		h.out.Printf("%2d. %-40s (log score: %8.4f)", i+1, text, r.Score)
	}
}
