package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/registry"
)

type addRelayerRequest struct {
	Address common.Address `json:"address"`
}

// pathAddress parses a hex address path parameter.
func pathAddress(r *http.Request, name string) (common.Address, bool) {
	v := r.PathValue(name)
	if !common.IsHexAddress(v) {
		return common.Address{}, false
	}
	return common.HexToAddress(v), true
}

func (h *Handler) listRelayers(w http.ResponseWriter, r *http.Request) {
	opts := registry.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}

	relayers, err := h.relay.Relayers(r.Context(), opts)
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, relayers)
}

func (h *Handler) getRelayer(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	rel, err := h.relay.Relayer(r.Context(), addr)
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rel)
}

func (h *Handler) addRelayer(w http.ResponseWriter, r *http.Request) {
	var req addRelayerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rel, err := h.relay.AddRelayer(r.Context(), req.Address)
	if err != nil {
		writeRelayError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rel)
}

func (h *Handler) removeRelayer(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	if err := h.relay.RemoveRelayer(r.Context(), addr); err != nil {
		writeRelayError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
