package types

// Version is the canonical project version. The durable log header stamps it
// as the producer version so readers can refuse logs they cannot parse.
const Version = "0.3.0"

// MinReaderVersion is the oldest reader version able to parse logs written by
// this build. Bumped only on incompatible wire-format changes.
const MinReaderVersion = "0.3.0"
