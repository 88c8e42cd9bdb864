package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/xraph/bftrelay/ledger"
)

// ProcessedResponse is returned by GET /processed/{fingerprint}.
type ProcessedResponse struct {
	Fingerprint common.Hash `json:"fingerprint"`
	Processed   bool        `json:"processed"`
}

// pathHash parses a 0x-prefixed 32-byte hash path parameter.
func pathHash(r *http.Request, name string) (common.Hash, bool) {
	b, err := hexutil.Decode(r.PathValue(name))
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}

func (h *Handler) listExecutions(w http.ResponseWriter, r *http.Request) {
	opts := ledger.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	if t := queryParam(r, "target"); t != "" {
		if !common.IsHexAddress(t) {
			writeError(w, http.StatusBadRequest, "invalid target")
			return
		}
		opts.Target = common.HexToAddress(t)
	}

	execs, err := h.relay.Executions(r.Context(), opts)
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, execs)
}

func (h *Handler) getExecution(w http.ResponseWriter, r *http.Request) {
	fp, ok := pathHash(r, "fingerprint")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid fingerprint")
		return
	}

	exec, err := h.relay.Execution(r.Context(), fp)
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

func (h *Handler) getProcessed(w http.ResponseWriter, r *http.Request) {
	fp, ok := pathHash(r, "fingerprint")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid fingerprint")
		return
	}

	processed, err := h.relay.IsProcessed(r.Context(), fp)
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProcessedResponse{Fingerprint: fp, Processed: processed})
}
