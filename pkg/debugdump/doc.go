// Package debugdump writes diagnostic snapshots of surface trees.
//
// A dump is the printed tree of one surface with a header comment naming the
// surface, its reconciler state and when the snapshot was taken. Dumps go to
// a Sink: a local directory or an S3 bucket.
//
//	sink, err := debugdump.NewFileSink("dumps")
//	loc, err := debugdump.Save(ctx, sink, debugdump.Dump{
//	    Surface: "shop",
//	    State:   "committed",
//	    Tree:    tree,
//	})
//
// Dumps are write-only; nothing in Delphi reads them back.
package debugdump
