// Package types defines the runwire envelope schema per CONTRACT_WIRE.md:
// the Record/Result tagged unions, the Control metadata block, the embedded
// Request/Response sub-protocol, and the shutdown DeferState enumeration.
//
// Tag allocation is global and centrally maintained here, not per-type:
//
//	Record envelope fields:   num=1, control=16, uuid=19, info=200
//	Result envelope fields:   control=16, uuid=24, info=200
//	Record payload tags:      2-13 high-frequency kinds, 17-26 low-frequency
//	                          kinds, 100 embedded Request
//	Result payload tags:      17-23 direct results, 100 embedded Response
//	Request payload tags:     1-24 run-facing calls, 64-76 service calls,
//	                          1000 test injection
//	Response payload tags:    18-37 run-facing, 64-70 service, 1000 test
//
// Tag 200 is reserved on every message kind for routing/diagnostic metadata
// (stream_id, tracelog_id) so a receiver can route an envelope without
// decoding its payload. New payload kinds must take a fresh tag from the
// appropriate range and never reuse a retired one; decoders treat unknown
// payload tags as a forward-compatible skip, not an error.
//
// Envelope values are owned by the side that constructed them until handed to
// the transport; after decode, ownership passes to the consumer.
//
//nolint:revive // types is a common Go package naming convention
package types
