/*
Package server implements msgpack IPC for gap filling.

The server reads a stream of msgpack maps from stdin and answers each with one msgpack map on
stdout. Every request carries an action and an optional id that is echoed back; requests without
an id get a generated one.

Fill a query, keeping the 3 best of a 10 wide beam:

	{"id": "req_001", "action": "fill", "q": "ca?", "b": 10, "k": 3}

The server responds with reconstructions ranked by log score:

	{"id": "req_001", "r": [{"t": "can", "s": -1.16, "rk": 1}, ...], "c": 3, "us": 145}

Other actions:

	{"id": "gen_001", "action": "generate", "n": 40, "seed": "Replied Elinor", "rs": 7}
	{"id": "voc_001", "action": "vocab"}
	{"id": "hc_001", "action": "health"}

Failures are reported as {"id": ..., "e": message, "c": code} where code is 400 for an invalid
request or beam configuration, 409 when no model is trained, 422 when a gap has no candidates
and 500 otherwise.
*/
package server

import (
	"github.com/lacunae/lacuna/pkg/corpus"
	"github.com/lacunae/lacuna/pkg/lacuna"
)

// Engine is what the server needs from a trained lacuna.
type Engine interface {
	Fill(query string, beamWidth, topK int) ([]lacuna.Result, error)
	Generate(count int, seed string, randomSeed int64) ([]string, error)
	Vocabulary() (*corpus.Vocabulary, error)
	Trained() bool
}

// Request is the envelope for every action.
type Request struct {
	ID         string `msgpack:"id"`
	Action     string `msgpack:"action"`
	Query      string `msgpack:"q,omitempty"`
	BeamWidth  int    `msgpack:"b,omitempty"`
	TopK       int    `msgpack:"k,omitempty"`
	Count      int    `msgpack:"n,omitempty"`
	Seed       string `msgpack:"seed,omitempty"`
	RandomSeed *int64 `msgpack:"rs,omitempty"`
}

// FillResult is one ranked reconstruction.
type FillResult struct {
	Text  string  `msgpack:"t"`
	Score float64 `msgpack:"s"`
	Rank  uint16  `msgpack:"rk"`
}

// FillResponse answers a fill action.
type FillResponse struct {
	ID        string       `msgpack:"id"`
	Results   []FillResult `msgpack:"r"`
	Count     int          `msgpack:"c"`
	TimeTaken int64        `msgpack:"us"`
}

// GenerateResponse answers a generate action. Text omits the padding sentinels.
type GenerateResponse struct {
	ID        string   `msgpack:"id"`
	Symbols   []string `msgpack:"g"`
	Text      string   `msgpack:"x"`
	TimeTaken int64    `msgpack:"us"`
}

// VocabularyResponse answers a vocab action.
type VocabularyResponse struct {
	ID         string `msgpack:"id"`
	Vocabulary string `msgpack:"v"`
	Size       int    `msgpack:"c"`
}

// StatusResponse answers health checks and announces readiness.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
