package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tidemark-io/runwire/types"
)

// Wiretypes. Only two are in use: varint scalars and length-delimited blobs.
const (
	wireVarint = 0
	wireBytes  = 2
)

// Envelope field tags that can never be payload discriminants. Everything
// else carried as a length-delimited field is a payload variant.
func recordReservedTag(tag uint32) bool {
	switch tag {
	case types.RecordFieldNum, types.RecordFieldControl, types.RecordFieldUUID, types.RecordFieldInfo:
		return true
	}
	return false
}

func resultReservedTag(tag uint32) bool {
	switch tag {
	case types.ResultFieldControl, types.ResultFieldUUID, types.ResultFieldInfo:
		return true
	}
	return false
}

// --- encoding ---

func appendKey(dst []byte, tag uint32, wt uint64) []byte {
	return binary.AppendUvarint(dst, uint64(tag)<<3|wt)
}

func appendVarintField(dst []byte, tag uint32, v uint64) []byte {
	dst = appendKey(dst, tag, wireVarint)
	return binary.AppendUvarint(dst, v)
}

func appendBytesField(dst []byte, tag uint32, b []byte) []byte {
	dst = appendKey(dst, tag, wireBytes)
	dst = binary.AppendUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

func appendMessageField(dst []byte, tag uint32, v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return dst, fmt.Errorf("marshal field %d: %w", tag, err)
	}
	return appendBytesField(dst, tag, b), nil
}

// EncodeRecord encodes a record envelope body (no length prefix).
func EncodeRecord(r *types.Record) ([]byte, error) {
	return AppendRecord(nil, r)
}

// AppendRecord appends the encoded record body to dst.
func AppendRecord(dst []byte, r *types.Record) ([]byte, error) {
	if r.Payload == nil {
		return dst, fmt.Errorf("encode record: nil payload")
	}
	tag := r.Payload.RecordTag()
	if recordReservedTag(tag) || tag == 0 {
		return dst, fmt.Errorf("encode record: payload tag %d collides with envelope fields", tag)
	}

	var err error
	if r.Num != 0 {
		dst = appendVarintField(dst, types.RecordFieldNum, uint64(r.Num))
	}
	if r.Control != nil {
		if dst, err = appendMessageField(dst, types.RecordFieldControl, r.Control); err != nil {
			return dst, err
		}
	}
	if r.UUID != "" {
		dst = appendBytesField(dst, types.RecordFieldUUID, []byte(r.UUID))
	}
	if r.Info != nil {
		if dst, err = appendMessageField(dst, types.RecordFieldInfo, r.Info); err != nil {
			return dst, err
		}
	}

	switch p := r.Payload.(type) {
	case *types.Request:
		body, err := appendRequestBody(nil, p)
		if err != nil {
			return dst, err
		}
		dst = appendBytesField(dst, tag, body)
	case *types.UnknownRecordPayload:
		dst = appendBytesField(dst, tag, p.Raw)
	default:
		if dst, err = appendMessageField(dst, tag, p); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// EncodeResult encodes a result envelope body (no length prefix).
func EncodeResult(r *types.Result) ([]byte, error) {
	return AppendResult(nil, r)
}

// AppendResult appends the encoded result body to dst.
func AppendResult(dst []byte, r *types.Result) ([]byte, error) {
	if r.Payload == nil {
		return dst, fmt.Errorf("encode result: nil payload")
	}
	tag := r.Payload.ResultTag()
	if resultReservedTag(tag) || tag == 0 {
		return dst, fmt.Errorf("encode result: payload tag %d collides with envelope fields", tag)
	}

	var err error
	if r.Control != nil {
		if dst, err = appendMessageField(dst, types.ResultFieldControl, r.Control); err != nil {
			return dst, err
		}
	}
	if r.UUID != "" {
		dst = appendBytesField(dst, types.ResultFieldUUID, []byte(r.UUID))
	}
	if r.Info != nil {
		if dst, err = appendMessageField(dst, types.ResultFieldInfo, r.Info); err != nil {
			return dst, err
		}
	}

	switch p := r.Payload.(type) {
	case *types.Response:
		body, err := appendResponseBody(nil, p)
		if err != nil {
			return dst, err
		}
		dst = appendBytesField(dst, tag, body)
	case *types.UnknownResultPayload:
		dst = appendBytesField(dst, tag, p.Raw)
	default:
		if dst, err = appendMessageField(dst, tag, p); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// appendRequestBody encodes the nested request union: a single tagged field
// in the same key format as the outer envelope.
func appendRequestBody(dst []byte, req *types.Request) ([]byte, error) {
	if req.Payload == nil {
		return dst, fmt.Errorf("encode request: nil payload")
	}
	tag := req.Payload.RequestTag()
	if tag == 0 {
		return dst, fmt.Errorf("encode request: payload tag must be nonzero")
	}
	if p, ok := req.Payload.(*types.UnknownRequestPayload); ok {
		return appendBytesField(dst, tag, p.Raw), nil
	}
	return appendMessageField(dst, tag, req.Payload)
}

func appendResponseBody(dst []byte, resp *types.Response) ([]byte, error) {
	if resp.Payload == nil {
		return dst, fmt.Errorf("encode response: nil payload")
	}
	tag := resp.Payload.ResponseTag()
	if tag == 0 {
		return dst, fmt.Errorf("encode response: payload tag must be nonzero")
	}
	if p, ok := resp.Payload.(*types.UnknownResponsePayload); ok {
		return appendBytesField(dst, tag, p.Raw), nil
	}
	return appendMessageField(dst, tag, resp.Payload)
}

// --- decoding ---

// bodyReader walks a tagged-field body. All reads are bounds-checked against
// the body slice; there is no way to read past a frame.
type bodyReader struct {
	buf []byte
	pos int
}

func (rd *bodyReader) more() bool { return rd.pos < len(rd.buf) }

func (rd *bodyReader) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(rd.buf[rd.pos:])
	if n <= 0 {
		return 0, decodeErrf(DecodeErrorTruncated, "varint at offset %d", rd.pos)
	}
	rd.pos += n
	return v, nil
}

func (rd *bodyReader) readKey() (uint32, uint64, error) {
	key, err := rd.readUvarint()
	if err != nil {
		return 0, 0, err
	}
	tag := uint32(key >> 3)
	wt := key & 7
	if tag == 0 {
		return 0, 0, decodeErrf(DecodeErrorBadKey, "field tag zero")
	}
	return tag, wt, nil
}

func (rd *bodyReader) readBytes() ([]byte, error) {
	n, err := rd.readUvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(rd.buf)-rd.pos) {
		return nil, decodeErrf(DecodeErrorTruncated, "field length %d exceeds remaining %d bytes", n, len(rd.buf)-rd.pos)
	}
	b := rd.buf[rd.pos : rd.pos+int(n)]
	rd.pos += int(n)
	return b, nil
}

// skipValue consumes a field value of the given wiretype without decoding it.
func (rd *bodyReader) skipValue(tag uint32, wt uint64) error {
	switch wt {
	case wireVarint:
		_, err := rd.readUvarint()
		return err
	case wireBytes:
		_, err := rd.readBytes()
		return err
	default:
		return decodeErrf(DecodeErrorBadKey, "field %d: unsupported wiretype %d", tag, wt)
	}
}

func (rd *bodyReader) readMessage(tag uint32, wt uint64, v any) error {
	if wt != wireBytes {
		return decodeErrf(DecodeErrorBadKey, "field %d: wiretype %d, want length-delimited", tag, wt)
	}
	raw, err := rd.readBytes()
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return &DecodeError{Kind: DecodeErrorBadValue, Msg: fmt.Sprintf("field %d", tag), Err: err}
	}
	return nil
}

// DecodeRecord decodes a record envelope body. Exactly one payload variant
// must be present; unknown variants decode to UnknownRecordPayload, and
// unknown scalar fields are skipped for forward compatibility.
func DecodeRecord(body []byte) (*types.Record, error) {
	rec := &types.Record{}
	rd := &bodyReader{buf: body}
	payloads := 0
	for rd.more() {
		tag, wt, err := rd.readKey()
		if err != nil {
			return nil, err
		}
		switch tag {
		case types.RecordFieldNum:
			if wt != wireVarint {
				return nil, decodeErrf(DecodeErrorBadKey, "num: wiretype %d, want varint", wt)
			}
			v, err := rd.readUvarint()
			if err != nil {
				return nil, err
			}
			rec.Num = int64(v)
		case types.RecordFieldControl:
			rec.Control = &types.Control{}
			if err := rd.readMessage(tag, wt, rec.Control); err != nil {
				return nil, err
			}
		case types.RecordFieldUUID:
			if wt != wireBytes {
				return nil, decodeErrf(DecodeErrorBadKey, "uuid: wiretype %d, want length-delimited", wt)
			}
			raw, err := rd.readBytes()
			if err != nil {
				return nil, err
			}
			rec.UUID = string(raw)
		case types.RecordFieldInfo:
			rec.Info = &types.RecordInfo{}
			if err := rd.readMessage(tag, wt, rec.Info); err != nil {
				return nil, err
			}
		default:
			if wt == wireVarint {
				if _, err := rd.readUvarint(); err != nil {
					return nil, err
				}
				continue
			}
			if wt != wireBytes {
				return nil, decodeErrf(DecodeErrorBadKey, "field %d: unsupported wiretype %d", tag, wt)
			}
			raw, err := rd.readBytes()
			if err != nil {
				return nil, err
			}
			payloads++
			if payloads > 1 {
				return nil, decodeErrf(DecodeErrorMultiplePayload, "second payload variant, tag %d", tag)
			}
			p, err := decodeRecordPayload(tag, raw)
			if err != nil {
				return nil, err
			}
			rec.Payload = p
		}
	}
	if payloads == 0 {
		return nil, decodeErrf(DecodeErrorNoPayload, "record carries no payload variant")
	}
	return rec, nil
}

// DecodeResult decodes a result envelope body under the same single-payload
// rules as DecodeRecord.
func DecodeResult(body []byte) (*types.Result, error) {
	res := &types.Result{}
	rd := &bodyReader{buf: body}
	payloads := 0
	for rd.more() {
		tag, wt, err := rd.readKey()
		if err != nil {
			return nil, err
		}
		switch tag {
		case types.ResultFieldControl:
			res.Control = &types.Control{}
			if err := rd.readMessage(tag, wt, res.Control); err != nil {
				return nil, err
			}
		case types.ResultFieldUUID:
			if wt != wireBytes {
				return nil, decodeErrf(DecodeErrorBadKey, "uuid: wiretype %d, want length-delimited", wt)
			}
			raw, err := rd.readBytes()
			if err != nil {
				return nil, err
			}
			res.UUID = string(raw)
		case types.ResultFieldInfo:
			res.Info = &types.ResultInfo{}
			if err := rd.readMessage(tag, wt, res.Info); err != nil {
				return nil, err
			}
		default:
			if wt == wireVarint {
				if _, err := rd.readUvarint(); err != nil {
					return nil, err
				}
				continue
			}
			if wt != wireBytes {
				return nil, decodeErrf(DecodeErrorBadKey, "field %d: unsupported wiretype %d", tag, wt)
			}
			raw, err := rd.readBytes()
			if err != nil {
				return nil, err
			}
			payloads++
			if payloads > 1 {
				return nil, decodeErrf(DecodeErrorMultiplePayload, "second payload variant, tag %d", tag)
			}
			p, err := decodeResultPayload(tag, raw)
			if err != nil {
				return nil, err
			}
			res.Payload = p
		}
	}
	if payloads == 0 {
		return nil, decodeErrf(DecodeErrorNoPayload, "result carries no payload variant")
	}
	return res, nil
}

func decodeRecordPayload(tag uint32, raw []byte) (types.RecordPayload, error) {
	if tag == types.RecordTagRequest {
		return decodeRequestBody(raw)
	}
	mk, ok := recordPayloads[tag]
	if !ok {
		return &types.UnknownRecordPayload{Tag: tag, Raw: append([]byte(nil), raw...)}, nil
	}
	p := mk()
	if err := msgpack.Unmarshal(raw, p); err != nil {
		return nil, &DecodeError{Kind: DecodeErrorBadValue, Msg: fmt.Sprintf("record payload tag %d", tag), Err: err}
	}
	return p, nil
}

func decodeResultPayload(tag uint32, raw []byte) (types.ResultPayload, error) {
	if tag == types.ResultTagResponse {
		return decodeResponseBody(raw)
	}
	mk, ok := resultPayloads[tag]
	if !ok {
		return &types.UnknownResultPayload{Tag: tag, Raw: append([]byte(nil), raw...)}, nil
	}
	p := mk()
	if err := msgpack.Unmarshal(raw, p); err != nil {
		return nil, &DecodeError{Kind: DecodeErrorBadValue, Msg: fmt.Sprintf("result payload tag %d", tag), Err: err}
	}
	return p, nil
}

// decodeRequestBody decodes the nested request union: exactly one tagged
// field identifying the call kind.
func decodeRequestBody(body []byte) (*types.Request, error) {
	rd := &bodyReader{buf: body}
	req := &types.Request{}
	payloads := 0
	for rd.more() {
		tag, wt, err := rd.readKey()
		if err != nil {
			return nil, err
		}
		if wt == wireVarint {
			if _, err := rd.readUvarint(); err != nil {
				return nil, err
			}
			continue
		}
		if wt != wireBytes {
			return nil, decodeErrf(DecodeErrorBadKey, "request field %d: unsupported wiretype %d", tag, wt)
		}
		raw, err := rd.readBytes()
		if err != nil {
			return nil, err
		}
		payloads++
		if payloads > 1 {
			return nil, decodeErrf(DecodeErrorMultiplePayload, "second request variant, tag %d", tag)
		}
		mk, ok := requestPayloads[tag]
		if !ok {
			req.Payload = &types.UnknownRequestPayload{Tag: tag, Raw: append([]byte(nil), raw...)}
			continue
		}
		p := mk()
		if err := msgpack.Unmarshal(raw, p); err != nil {
			return nil, &DecodeError{Kind: DecodeErrorBadValue, Msg: fmt.Sprintf("request payload tag %d", tag), Err: err}
		}
		req.Payload = p
	}
	if payloads == 0 {
		return nil, decodeErrf(DecodeErrorNoPayload, "request carries no call variant")
	}
	return req, nil
}

func decodeResponseBody(body []byte) (*types.Response, error) {
	rd := &bodyReader{buf: body}
	resp := &types.Response{}
	payloads := 0
	for rd.more() {
		tag, wt, err := rd.readKey()
		if err != nil {
			return nil, err
		}
		if wt == wireVarint {
			if _, err := rd.readUvarint(); err != nil {
				return nil, err
			}
			continue
		}
		if wt != wireBytes {
			return nil, decodeErrf(DecodeErrorBadKey, "response field %d: unsupported wiretype %d", tag, wt)
		}
		raw, err := rd.readBytes()
		if err != nil {
			return nil, err
		}
		payloads++
		if payloads > 1 {
			return nil, decodeErrf(DecodeErrorMultiplePayload, "second response variant, tag %d", tag)
		}
		mk, ok := responsePayloads[tag]
		if !ok {
			resp.Payload = &types.UnknownResponsePayload{Tag: tag, Raw: append([]byte(nil), raw...)}
			continue
		}
		p := mk()
		if err := msgpack.Unmarshal(raw, p); err != nil {
			return nil, &DecodeError{Kind: DecodeErrorBadValue, Msg: fmt.Sprintf("response payload tag %d", tag), Err: err}
		}
		resp.Payload = p
	}
	if payloads == 0 {
		return nil, decodeErrf(DecodeErrorNoPayload, "response carries no reply variant")
	}
	return resp, nil
}

// PeekInfo extracts the routing slot (tag 200) from an envelope body without
// decoding the payload variant. It works on record and result bodies alike
// and returns nil when the slot is absent. Payload bytes this build cannot
// parse do not affect the peek.
func PeekInfo(body []byte) (*types.RecordInfo, error) {
	rd := &bodyReader{buf: body}
	for rd.more() {
		tag, wt, err := rd.readKey()
		if err != nil {
			return nil, err
		}
		if tag != types.RecordFieldInfo {
			if err := rd.skipValue(tag, wt); err != nil {
				return nil, err
			}
			continue
		}
		info := &types.RecordInfo{}
		if err := rd.readMessage(tag, wt, info); err != nil {
			return nil, err
		}
		return info, nil
	}
	return nil, nil
}
