package types

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// DeferState is one phase of the ordered shutdown sequence. The values form
// a closed enumeration (0-14) and a strict total order: drivers advance one
// state at a time, never skipping and never repeating a passed state.
type DeferState int32

const (
	DeferBegin DeferState = iota
	DeferFlushRun
	DeferFlushStats
	DeferFlushPartialHistory
	DeferFlushTB
	DeferFlushSum
	DeferFlushDebouncer
	DeferFlushOutput
	DeferFlushJob
	DeferFlushDir
	DeferFlushFP
	DeferJoinFP
	DeferFlushFS
	DeferFlushFinal
	DeferEnd
)

var deferStateNames = map[DeferState]string{
	DeferBegin:               "begin",
	DeferFlushRun:            "flush_run",
	DeferFlushStats:          "flush_stats",
	DeferFlushPartialHistory: "flush_partial_history",
	DeferFlushTB:             "flush_tb",
	DeferFlushSum:            "flush_sum",
	DeferFlushDebouncer:      "flush_debouncer",
	DeferFlushOutput:         "flush_output",
	DeferFlushJob:            "flush_job",
	DeferFlushDir:            "flush_dir",
	DeferFlushFP:             "flush_fp",
	DeferJoinFP:              "join_fp",
	DeferFlushFS:             "flush_fs",
	DeferFlushFinal:          "flush_final",
	DeferEnd:                 "end",
}

// String returns the wire name of the state.
func (s DeferState) String() string {
	if name, ok := deferStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("defer(%d)", int32(s))
}

// Valid reports whether s is inside the closed enumeration.
func (s DeferState) Valid() bool {
	return s >= DeferBegin && s <= DeferEnd
}

// Terminal reports whether s is the final state, after which the channel may
// be closed.
func (s DeferState) Terminal() bool { return s == DeferEnd }

// Next returns the state that follows s. Calling Next on the terminal state
// returns the terminal state unchanged.
func (s DeferState) Next() DeferState {
	if s >= DeferEnd {
		return DeferEnd
	}
	return s + 1
}

// DeferRequest advances the shutdown sequence by one phase. It is internal
// control traffic: always local, never persisted.
type DeferRequest struct {
	State DeferState
}

// RequestTag places DeferRequest in the request discriminant space.
func (*DeferRequest) RequestTag() uint32 { return RequestTagDefer }

var (
	_ msgpack.CustomEncoder = (*DeferRequest)(nil)
	_ msgpack.CustomDecoder = (*DeferRequest)(nil)
)

// EncodeMsgpack encodes the request as {"state": n}.
func (d *DeferRequest) EncodeMsgpack(enc *msgpack.Encoder) error {
	if !d.State.Valid() {
		return fmt.Errorf("defer state out of range: %d", int32(d.State))
	}
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString("state"); err != nil {
		return err
	}
	return enc.EncodeInt32(int32(d.State))
}

// DecodeMsgpack decodes the request, rejecting out-of-range states rather
// than clamping them.
func (d *DeferRequest) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		if key != "state" {
			if err := dec.Skip(); err != nil {
				return err
			}
			continue
		}
		v, err := dec.DecodeInt32()
		if err != nil {
			return err
		}
		state := DeferState(v)
		if !state.Valid() {
			return fmt.Errorf("defer state out of range: %d", v)
		}
		d.State = state
	}
	return nil
}
