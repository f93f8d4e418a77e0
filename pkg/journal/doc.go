// Package journal records every edit script a reconciler applies and replays
// the records later.
//
// A journal file starts with a 6-byte header: the magic "DLPJ", a version
// byte and a flags byte. The rest is a sequence of CBOR records, one per
// applied script, zstd-compressed when the compressed flag is set.
//
// A Writer is a reconcile.Observer, so journaling a surface is one option:
//
//	w, err := journal.Create("delphi.journal", journal.WithCompression(true))
//	rec := reconcile.New(host, reconcile.WithObserver(w))
//	...
//	err = w.Close()
//
// Replay rebuilds each surface on an in-memory host:
//
//	r, err := journal.Open("delphi.journal")
//	rp, err := journal.Replay(ctx, r)
//	tree, ok := rp.Tree("shop")
package journal
