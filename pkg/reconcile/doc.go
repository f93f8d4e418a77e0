// Package reconcile drives one host surface through successive trees.
//
// A Reconciler owns a patch.Patcher and the last committed tree. Render
// diffs the new tree against the committed one and applies the script:
//
//	r := reconcile.New(host, reconcile.WithSurfaceID("shop:steve"))
//	if err := r.Render(ctx, shopMenu(state)); err != nil {
//	    // r.State() == reconcile.StateDegraded; the next Render resyncs
//	}
//	defer r.Teardown(ctx)
//
// States:
//
//	Idle       nothing rendered yet
//	Committed  the host shows Tree()
//	Degraded   a script failed part-way; the next Render tears down every
//	           tracked live object and rebuilds from an empty surface
//	Closed     after Teardown; Render and Teardown return ErrReconcilerClosed
package reconcile
