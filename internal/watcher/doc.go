// Package watcher keeps a collection in sync with a folder. Creating or
// writing a supported file re-indexes it; removing or renaming it drops its
// chunks. Bursts of events are debounced into one batch.
package watcher
