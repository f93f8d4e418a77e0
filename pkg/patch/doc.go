// Package patch applies edit scripts to live host objects.
//
// A Patcher is bound to one HostAdapter. It keeps a mirror of the live
// bindings (opaque Handles returned by the host) shaped like the live tree,
// and translates every op of a dom.Script into adapter calls:
//
//	Insert   CreateElement for the node, then for its children in order
//	Remove   RemoveElement for the subtree, children before parents
//	Update   UpdateElement with the attribute diff
//	Move     MoveElement with the destination index
//	Replace  Remove followed by Insert at the same index
//
// Ops run strictly in order, one adapter call at a time. The first failure
// stops the script and is reported as a *PatchError naming the op. Nothing is
// rolled back: the mirror reflects exactly the calls that succeeded, so a
// later Teardown removes everything the host still holds.
package patch
