// Package bftrelay provides a Byzantine-fault-tolerant transaction relay for Go.
//
// A relay forwards an arbitrary call (target, payload) only when a quorum of
// registered relayer keys has signed the exact (target, payload, expiration)
// triple. With n registered relayers the quorum is n - floor((n-1)/3), so up
// to floor((n-1)/3) faulty relayers can neither authorize a call on their own
// nor block one.
//
// Key features:
//   - Owner-governed relayer set with a threshold derived on every read
//   - secp256k1 signature recovery with malleability rejection and signer dedup
//   - Hard expiration deadlines against an injectable ledger clock
//   - Replay protection keyed by request fingerprint, marked atomically
//     before forwarding and rolled back if the forward fails
//   - Composable store pattern with multiple backends (Postgres, SQLite, MongoDB, Redis, Memory)
//   - Append-only event log with in-process subscribers
//   - Forge-native HTTP API with standalone fallback
//
// Quick start:
//
//	r, err := bftrelay.New(
//	    bftrelay.WithStore(memory.New()),
//	    bftrelay.WithOwner(owner),
//	    bftrelay.WithForwarder(router),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	admin := scope.WithCaller(ctx, owner)
//	r.AddRelayer(admin, relayerA)
//	r.AddRelayer(admin, relayerB)
//
//	receipt, err := r.Relay(ctx, &bftrelay.Request{
//	    Target:     target,
//	    Payload:    calldata,
//	    Expiration: uint64(time.Now().Add(2 * time.Minute).Unix()),
//	    Signatures: [][]byte{sigA, sigB},
//	})
package bftrelay
