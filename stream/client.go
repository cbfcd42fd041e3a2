package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tidemark-io/runwire/flowgate"
	"github.com/tidemark-io/runwire/log"
	"github.com/tidemark-io/runwire/mailbox"
	"github.com/tidemark-io/runwire/metrics"
	"github.com/tidemark-io/runwire/types"
	"github.com/tidemark-io/runwire/wire"
)

// ClientOptions configures a producer Client.
type ClientOptions struct {
	// StreamID is stamped into the routing slot of every outgoing record.
	StreamID string
	// ConnectionID identifies this client on shared streams. Optional.
	ConnectionID string
	// Gate paces flow-controlled publishes. Optional.
	Gate    *flowgate.Gate
	Logger  *log.Logger
	Metrics *metrics.Collector
}

// Client is the producer side of a stream session. Publish carries
// flow-controlled data records; Deliver carries control traffic that bypasses
// the gate; Call correlates a record with its result through the mailbox.
//
// The client owns the record leg of the connection and a background loop on
// the result leg. It does not own the connection itself; closing the
// transport is the caller's job.
type Client struct {
	writeMu sync.Mutex
	fw      *wire.FrameWriter
	nextNum int64

	mb      *mailbox.Mailbox
	gate    *flowgate.Gate
	logger  *log.Logger
	metrics *metrics.Collector

	streamID string
	connID   string

	readDone chan struct{}
	readErr  error
}

// NewClient creates a client writing records to w and consuming results from
// r. The result loop starts immediately.
func NewClient(w io.Writer, r io.Reader, opts ClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	c := &Client{
		fw:       wire.NewFrameWriter(w, 0),
		mb:       mailbox.New(opts.Logger),
		gate:     opts.Gate,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		streamID: opts.StreamID,
		connID:   opts.ConnectionID,
		readDone: make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

// Publish sends a data record: sequence-stamped, flow-controlled, persisted
// by the consumer. Publish blocks while the gate is over its watermark.
func (c *Client) Publish(ctx context.Context, payload types.RecordPayload) error {
	rec := &types.Record{Payload: payload}
	rec.EnsureControl().FlowControl = true
	return c.send(ctx, rec, true)
}

// Deliver sends a control record: no sequence number, no pacing. The caller
// sets Local on traffic the consumer must not persist.
func (c *Client) Deliver(ctx context.Context, rec *types.Record) error {
	return c.send(ctx, rec, false)
}

func (c *Client) send(ctx context.Context, rec *types.Record, stampSeq bool) error {
	if c.gate != nil && flowgate.ShouldPace(rec) {
		paused := c.gate.Blocked()
		if paused {
			c.metrics.IncFlowPause()
		}
		if err := c.gate.Admit(ctx); err != nil {
			return err
		}
		if paused {
			c.metrics.IncFlowResume()
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if stampSeq {
		c.nextNum++
		rec.Num = c.nextNum
	}
	if rec.Info == nil {
		rec.Info = &types.RecordInfo{StreamID: c.streamID}
	}

	body, err := wire.EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("stream: encode record: %w", err)
	}
	end, err := c.fw.WriteBody(body)
	if err != nil {
		return &SessionError{Kind: SessionErrorFrame, Err: fmt.Errorf("write record: %w", err)}
	}
	if c.gate != nil {
		c.gate.MarkSent(end)
	}
	c.metrics.AddRecordSent(wire.FrameSize(body))
	return nil
}

// Call sends rec with a fresh mailbox slot and blocks for the matching
// result. The record's control block gains req_resp and the slot token;
// everything else on it is the caller's.
func (c *Client) Call(ctx context.Context, rec *types.Record) (*types.Result, error) {
	h := c.mb.OpenCall()
	c.metrics.IncCallOpened()

	ctl := rec.EnsureControl()
	ctl.ReqResp = true
	ctl.MailboxSlot = h.Slot()
	if ctl.ConnectionID == "" {
		ctl.ConnectionID = c.connID
	}

	if err := c.send(ctx, rec, rec.Num == 0 && !ctl.Local); err != nil {
		h.Cancel()
		c.metrics.IncCallCanceled()
		return nil, err
	}

	res, err := h.Wait(ctx)
	if err != nil {
		h.Cancel()
		c.metrics.IncCallCanceled()
		return nil, err
	}
	c.metrics.IncCallAnswered()
	return res, nil
}

// CallRequest is Call for the request sub-protocol: the request rides a
// local record, so it is correlated but never persisted.
func (c *Client) CallRequest(ctx context.Context, req types.RequestPayload) (*types.Result, error) {
	rec := &types.Record{
		Control: &types.Control{Local: true},
		Payload: &types.Request{Payload: req},
	}
	return c.Call(ctx, rec)
}

// Exit publishes the exit record as a correlated call and, once it is
// acknowledged, kicks off the shutdown sequence with the first defer request.
func (c *Client) Exit(ctx context.Context, exitCode int32) (*types.Result, error) {
	res, err := c.Call(ctx, &types.Record{Payload: &types.RunExitRecord{ExitCode: exitCode}})
	if err != nil {
		return nil, err
	}
	begin := &types.Record{
		Control: &types.Control{Local: true},
		Payload: &types.Request{Payload: &types.DeferRequest{State: types.DeferBegin}},
	}
	if err := c.Deliver(ctx, begin); err != nil {
		return res, err
	}
	return res, nil
}

// readLoop consumes the result leg: correlated results resolve their mailbox
// slots; stray results are dropped with a violation count.
func (c *Client) readLoop(r io.Reader) {
	defer close(c.readDone)
	fr := wire.NewFrameReader(r)
	for {
		body, err := fr.ReadBody()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.metrics.IncFrameError()
				c.readErr = &SessionError{Kind: SessionErrorFrame, Err: err}
			}
			c.mb.CancelAll()
			return
		}
		res, err := wire.DecodeResult(body)
		if err != nil {
			c.metrics.IncDecodeError()
			c.logger.Warn("stream: dropping undecodable result", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		c.metrics.AddResultReceived(wire.FrameSize(body))

		if err := c.mb.Deliver(res); err != nil {
			c.metrics.IncCorrelationViolation()
		}
	}
}

// Done is closed when the result leg ends.
func (c *Client) Done() <-chan struct{} { return c.readDone }

// Err returns the fatal result-leg error, if any, after Done is closed.
func (c *Client) Err() error { return c.readErr }

// Outstanding returns the number of calls still awaiting results.
func (c *Client) Outstanding() int { return c.mb.Outstanding() }

// LastNum returns the last stamped sequence number.
func (c *Client) LastNum() int64 {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.nextNum
}

// Close cancels all outstanding calls. The transport is closed by its owner.
func (c *Client) Close() {
	c.mb.CancelAll()
}
