// Package remote drives a host in another process over a websocket.
//
// Client implements patch.HostAdapter: each adapter call becomes a
// protocol.Call frame and blocks until the matching Result or Error frame
// arrives. Bridge is the other end, an http.Handler that executes calls
// against a local adapter:
//
//	// host process
//	http.Handle("/bridge", remote.NewBridge(func(r *http.Request, surface string) (patch.HostAdapter, error) {
//	    return screens.Open(surface)
//	}))
//
//	// UI process
//	client, err := remote.Dial(ctx, "ws://host:7070/bridge", "shop:steve")
//	r := reconcile.New(client)
//
// Calls on one Client are answered in order. A Client carries exactly one
// surface; open one Client per surface.
package remote
