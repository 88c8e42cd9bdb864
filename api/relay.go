package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/signature"
)

// RelayRequest is the JSON body of POST /relay.
type RelayRequest struct {
	Target     common.Address  `json:"target"`
	Payload    hexutil.Bytes   `json:"payload"`
	Expiration uint64          `json:"expiration"`
	Signatures []hexutil.Bytes `json:"signatures"`
}

// RelayResponse is returned for an executed relay.
type RelayResponse struct {
	Fingerprint common.Hash `json:"fingerprint"`
	*bftrelay.Receipt
}

// ThresholdResponse is returned by GET /threshold.
type ThresholdResponse struct {
	Threshold int `json:"threshold"`
}

func (req *RelayRequest) toRequest() *bftrelay.Request {
	sigs := make([][]byte, len(req.Signatures))
	for i, s := range req.Signatures {
		sigs[i] = s
	}
	return &bftrelay.Request{
		Target:     req.Target,
		Payload:    req.Payload,
		Expiration: req.Expiration,
		Signatures: sigs,
	}
}

func (h *Handler) submitRelay(w http.ResponseWriter, r *http.Request) {
	var req RelayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.limiter.Allow(req.Target) {
		writeError(w, http.StatusTooManyRequests, "target rate limit exceeded")
		return
	}

	receipt, err := h.relay.Relay(r.Context(), req.toRequest())
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RelayResponse{
		Fingerprint: signature.Fingerprint(req.Target, req.Payload, req.Expiration),
		Receipt:     receipt,
	})
}

func (h *Handler) getThreshold(w http.ResponseWriter, r *http.Request) {
	t, err := h.relay.Threshold(r.Context())
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ThresholdResponse{Threshold: t})
}
