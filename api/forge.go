package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/xraph/forge"

	"github.com/xraph/bftrelay"
	"github.com/xraph/bftrelay/event"
	"github.com/xraph/bftrelay/ledger"
	"github.com/xraph/bftrelay/ratelimit"
	"github.com/xraph/bftrelay/registry"
	"github.com/xraph/bftrelay/signature"
)

// ForgeAPI exposes relay submission and the read surface as Forge routes
// with OpenAPI metadata. Registry mutations need the signed request body and
// are served by Handler only.
type ForgeAPI struct {
	relay   *bftrelay.Relay
	limiter *ratelimit.Limiter
	log     forge.Logger
}

// NewForgeAPI creates a ForgeAPI for r. perSecond caps submissions per
// target; 0 disables the limit.
func NewForgeAPI(r *bftrelay.Relay, perSecond int, log forge.Logger) *ForgeAPI {
	return &ForgeAPI{
		relay:   r,
		limiter: ratelimit.New(perSecond, nil),
		log:     log,
	}
}

// RegisterRoutes registers the relay routes into the given Forge router.
func (a *ForgeAPI) RegisterRoutes(router forge.Router) {
	a.registerRelayRoutes(router)
	a.registerRelayerRoutes(router)
	a.registerLedgerRoutes(router)
	a.registerEventRoutes(router)
	a.registerStatsRoutes(router)
}

// ---------------------------------------------------------------------------
// Relay routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerRelayRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("relay"))

	if err := g.POST("/relay", a.submitRelay,
		forge.WithSummary("Submit relay request"),
		forge.WithDescription("Verifies relayer signatures and forwards the payload once a quorum has signed."),
		forge.WithOperationID("submitRelay"),
		forge.WithRequestSchema(RelayForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Relay receipt", RelayResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register submitRelay route", forge.Error(err))
	}

	if err := g.GET("/threshold", a.getThreshold,
		forge.WithSummary("Signature threshold"),
		forge.WithDescription("Returns the number of distinct relayer signatures currently required."),
		forge.WithOperationID("getThreshold"),
		forge.WithResponseSchema(http.StatusOK, "Current threshold", ThresholdResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getThreshold route", forge.Error(err))
	}
}

func (a *ForgeAPI) submitRelay(ctx forge.Context, req *RelayForgeRequest) (*RelayResponse, error) {
	if !a.limiter.Allow(req.Target) {
		return nil, forge.NewHTTPError(http.StatusTooManyRequests, "target rate limit exceeded")
	}

	body := RelayRequest{
		Target:     req.Target,
		Payload:    req.Payload,
		Expiration: req.Expiration,
		Signatures: req.Signatures,
	}

	receipt, err := a.relay.Relay(ctx.Context(), body.toRequest())
	if err != nil {
		return nil, mapError(err)
	}

	return &RelayResponse{
		Fingerprint: signature.Fingerprint(req.Target, req.Payload, req.Expiration),
		Receipt:     receipt,
	}, nil
}

func (a *ForgeAPI) getThreshold(ctx forge.Context, _ *ThresholdForgeRequest) (*ThresholdResponse, error) {
	t, err := a.relay.Threshold(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}

	return &ThresholdResponse{Threshold: t}, nil
}

// ---------------------------------------------------------------------------
// Relayer routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerRelayerRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("relayers"))

	if err := g.GET("/relayers", a.listRelayers,
		forge.WithSummary("List relayers"),
		forge.WithDescription("Returns registered relayers in registration order."),
		forge.WithOperationID("listRelayers"),
		forge.WithRequestSchema(ListRelayersForgeRequest{}),
		forge.WithListResponse(registry.Relayer{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listRelayers route", forge.Error(err))
	}

	if err := g.GET("/relayers/:address", a.getRelayer,
		forge.WithSummary("Get relayer"),
		forge.WithDescription("Returns the membership record of a registered relayer."),
		forge.WithOperationID("getRelayer"),
		forge.WithResponseSchema(http.StatusOK, "Relayer details", registry.Relayer{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getRelayer route", forge.Error(err))
	}
}

func (a *ForgeAPI) listRelayers(ctx forge.Context, req *ListRelayersForgeRequest) ([]*registry.Relayer, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	relayers, err := a.relay.Relayers(ctx.Context(), registry.ListOpts{Offset: req.Offset, Limit: limit})
	if err != nil {
		return nil, mapError(err)
	}

	return relayers, nil
}

func (a *ForgeAPI) getRelayer(ctx forge.Context, req *GetRelayerForgeRequest) (*registry.Relayer, error) {
	if !common.IsHexAddress(req.Address) {
		return nil, forge.BadRequest("invalid address")
	}

	rel, err := a.relay.Relayer(ctx.Context(), common.HexToAddress(req.Address))
	if err != nil {
		return nil, mapError(err)
	}

	return rel, nil
}

// ---------------------------------------------------------------------------
// Ledger routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerLedgerRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("ledger"))

	if err := g.GET("/executions", a.listExecutions,
		forge.WithSummary("List executions"),
		forge.WithDescription("Returns executed requests, newest first."),
		forge.WithOperationID("listExecutions"),
		forge.WithRequestSchema(ListExecutionsForgeRequest{}),
		forge.WithListResponse(ledger.Execution{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listExecutions route", forge.Error(err))
	}

	if err := g.GET("/executions/:fingerprint", a.getExecution,
		forge.WithSummary("Get execution"),
		forge.WithDescription("Returns the execution record for a fingerprint."),
		forge.WithOperationID("getExecution"),
		forge.WithResponseSchema(http.StatusOK, "Execution details", ledger.Execution{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getExecution route", forge.Error(err))
	}

	if err := g.GET("/processed/:fingerprint", a.getProcessed,
		forge.WithSummary("Replay check"),
		forge.WithDescription("Reports whether a fingerprint has already been executed."),
		forge.WithOperationID("getProcessed"),
		forge.WithResponseSchema(http.StatusOK, "Processed flag", ProcessedResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getProcessed route", forge.Error(err))
	}
}

func parseFingerprint(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, forge.BadRequest("invalid fingerprint")
	}
	return common.BytesToHash(b), nil
}

func (a *ForgeAPI) listExecutions(ctx forge.Context, req *ListExecutionsForgeRequest) ([]*ledger.Execution, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	opts := ledger.ListOpts{Offset: req.Offset, Limit: limit}
	if req.Target != "" {
		if !common.IsHexAddress(req.Target) {
			return nil, forge.BadRequest("invalid target")
		}
		opts.Target = common.HexToAddress(req.Target)
	}

	execs, err := a.relay.Executions(ctx.Context(), opts)
	if err != nil {
		return nil, mapError(err)
	}

	return execs, nil
}

func (a *ForgeAPI) getExecution(ctx forge.Context, req *GetExecutionForgeRequest) (*ledger.Execution, error) {
	fp, err := parseFingerprint(req.Fingerprint)
	if err != nil {
		return nil, err
	}

	exec, err := a.relay.Execution(ctx.Context(), fp)
	if err != nil {
		return nil, mapError(err)
	}

	return exec, nil
}

func (a *ForgeAPI) getProcessed(ctx forge.Context, req *GetProcessedForgeRequest) (*ProcessedResponse, error) {
	fp, err := parseFingerprint(req.Fingerprint)
	if err != nil {
		return nil, err
	}

	processed, err := a.relay.IsProcessed(ctx.Context(), fp)
	if err != nil {
		return nil, mapError(err)
	}

	return &ProcessedResponse{Fingerprint: fp, Processed: processed}, nil
}

// ---------------------------------------------------------------------------
// Event routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerEventRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("events"))

	if err := g.GET("/events", a.listEvents,
		forge.WithSummary("List events"),
		forge.WithDescription("Returns committed relayer and relay events, newest first."),
		forge.WithOperationID("listEvents"),
		forge.WithRequestSchema(ListEventsForgeRequest{}),
		forge.WithListResponse(event.Event{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listEvents route", forge.Error(err))
	}
}

func (a *ForgeAPI) listEvents(ctx forge.Context, req *ListEventsForgeRequest) ([]*event.Event, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	kind := event.Kind(req.Kind)
	if kind != "" && !kind.Valid() {
		return nil, forge.BadRequest("unknown event kind")
	}

	events, err := a.relay.Events(ctx.Context(), event.ListOpts{Offset: req.Offset, Limit: limit, Kind: kind})
	if err != nil {
		return nil, mapError(err)
	}

	return events, nil
}

// ---------------------------------------------------------------------------
// Stats routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerStatsRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("stats"))

	if err := g.GET("/stats", a.getStats,
		forge.WithSummary("Relay statistics"),
		forge.WithDescription("Returns relayer count, threshold, fault tolerance and executions."),
		forge.WithOperationID("getStats"),
		forge.WithResponseSchema(http.StatusOK, "Relay statistics", bftrelay.Stats{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getStats route", forge.Error(err))
	}
}

func (a *ForgeAPI) getStats(ctx forge.Context, _ *StatsForgeRequest) (*bftrelay.Stats, error) {
	stats, err := a.relay.Stats(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}

	return stats, nil
}
