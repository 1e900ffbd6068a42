// Package importers runs the per-file import pipeline over KOReader
// sidecar files.
//
// # Architecture
//
// Each file flows through the same stages:
//
//	metadata.<ext>.lua → Loader (decode + extract) → date window → Syncer → Report
//
// The Loader turns a file into an entities.Book with its highlights
// (koreader.Extractor), the window keeps only highlights captured between
// the requested dates, and the Syncer stores them idempotently
// (syncer.Engine). Files are independent: a file that fails to decode or
// extract is recorded with its Stage and the run moves on.
//
// # Example Usage
//
//	w, _ := window.New(from, to)
//	pipeline := importers.NewPipeline(afero.NewOsFs(), koreader.NewExtractor(), engine, w, 4)
//
//	paths, _ := koreader.Discover(afero.NewOsFs(), "/Volumes/Kindle/livros")
//	report := pipeline.Run(ctx, paths)
//	fmt.Println(report.Totals.Inserted, report.FilesFailed)
package importers
