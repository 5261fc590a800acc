// Package watcher feeds the extraction pipeline with documents that appear in
// the storage directory.
//
// At startup the watcher registers filesystem notifications first and then
// scans the directory, so files that arrive during the scan are not missed.
// Every candidate is claimed once per path and modification time, which keeps
// the scan and live create events from queueing the same file twice. Live
// events wait a configurable settle delay before the file is queued so that
// producers can finish writing it.
package watcher
