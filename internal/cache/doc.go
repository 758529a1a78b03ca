// Package cache is the disk store behind the network fallback. Archives fetched
// from FetchUpstream are written to StoragePath/<group>/<name> with temp file +
// rename semantics, so a later start finds them locally instead of fetching
// again. The lump catalog never reads this package directly: it only receives
// the local path the fetcher hands back.
package cache
