// Package registry owns the static metadata for every known RAM variable,
// persisted setting, and flag bit, plus the fixed-point scaling between raw
// wire values and engineering units.
//
// The tables are built once at init and never mutated. Scale/offset/range
// values are configuration data sourced from the protocol document and
// verified device traces; entries the document leaves undocumented are
// marked Unverified rather than guessed.
package registry
