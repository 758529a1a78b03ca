// Package lumps builds the lump catalog: it ingests an ordered list of WAD
// archives and loose lump files, gathers sprite/flat/colormap regions into
// contiguous namespace blocks, indexes every name with a chained hash that
// lets later archives override earlier ones, and serves lump bytes through a
// lock-counted cache whose buffers live in a purgeable allocator.
//
// A Catalog is built once by Open and is frozen afterwards: handles returned
// by Lookup stay valid for the lifetime of the process. Startup failures are
// returned as errors; failures after startup are programming or corruption
// errors and are reported through Options.Fatal.
package lumps
