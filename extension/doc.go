// Package extension assembles a bftrelay instance from configuration and
// mounts its API into an application.
//
// The extension:
//   - Builds the Relay from Config plus explicit options
//   - Migrates the store on Init unless disabled
//   - Serves the net/http API under a configurable prefix
//   - Registers Forge routes with OpenAPI metadata
//   - Exposes store health and shutdown hooks
//
// Usage:
//
//	ext := extension.New(
//	    extension.WithConfig(cfg),
//	    extension.WithStore(memory.New()),
//	    extension.WithForwarder(forwarder),
//	)
//	if err := ext.Init(ctx); err != nil {
//	    return err
//	}
//	h, _ := ext.Handler()
//	http.ListenAndServe(":8080", h)
package extension
