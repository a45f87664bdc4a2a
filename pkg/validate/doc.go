// Package validate is the default event input validator. It enforces
// the collector's documented limits on event names and property sets:
// at most 1000 properties, nesting no deeper than 10 levels, and a
// serialized size of at most 100KB.
//
// The tracker accepts any Validator implementation; this one covers the
// common case so hosts get sane limits without writing their own.
package validate
