// Package stream wires the protocol layers into duplex sessions: a producer
// Client that publishes records and correlates calls, and a consumer Handler
// that validates, persists, answers, and drives shutdown.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tidemark-io/runwire/flowgate"
	"github.com/tidemark-io/runwire/log"
	"github.com/tidemark-io/runwire/metrics"
	"github.com/tidemark-io/runwire/shutdown"
	"github.com/tidemark-io/runwire/store"
	"github.com/tidemark-io/runwire/types"
	"github.com/tidemark-io/runwire/wire"
)

// HandlerOptions configures a consumer Handler.
type HandlerOptions struct {
	// StreamID identifies the logical run this handler serves.
	StreamID string
	// Store persists non-local records. Nil disables persistence.
	Store *store.Writer
	// Gate is the shared flow gate; status reports drain it. Optional.
	Gate *flowgate.Gate
	// PhaseTimeout bounds each shutdown phase. Zero takes the default.
	PhaseTimeout time.Duration
	// OnRecord is an application hook invoked after a record is validated
	// and persisted, before the response is sent. Optional.
	OnRecord func(ctx context.Context, rec *types.Record) error
	// OnRequest handles request kinds the handler has no built-in answer
	// for. Returning a nil payload suppresses the response. Optional.
	OnRequest func(ctx context.Context, req types.RequestPayload) (types.ResponsePayload, error)
	Logger    *log.Logger
	Metrics   *metrics.Collector
}

// Handler consumes one stream's records from a duplex connection: it
// validates sequence numbers, persists durable records, answers calls, and
// drives the shutdown sequence when the exit record's defer chain begins.
//
// Per the channel contract:
//   - Records are read in order; data records carry strictly monotonic
//     sequence numbers, control traffic rides with num 0.
//   - A malformed body is dropped and counted; the next frame resyncs.
//   - Losing frame sync is fatal: the session ends.
type Handler struct {
	fr     *wire.FrameReader
	fwMu   sync.Mutex
	fw     *wire.FrameWriter
	opts   HandlerOptions
	driver *shutdown.Driver

	lastNum  int64
	exitSeen bool
	exitCode int32

	// Accumulated consumer state served back through requests.
	summary  map[string]string
	warnings []string

	// In-progress history row assembled from partial updates.
	partial     []types.PartialHistoryItem
	partialKeys map[string]int
	partialStep int64

	// Defer forwarding; only touched from the Run goroutine.
	deferNext      types.DeferState
	deferForwarded bool
}

// NewHandler creates a handler reading records from r and writing results to
// w. Register custom flush work with OnFlush before calling Run.
func NewHandler(r io.Reader, w io.Writer, opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	h := &Handler{
		fr:          wire.NewFrameReader(r),
		fw:          wire.NewFrameWriter(w, 0),
		opts:        opts,
		summary:     make(map[string]string),
		partialKeys: make(map[string]int),
	}
	h.driver = shutdown.NewDriver(shutdown.Options{
		PhaseTimeout: opts.PhaseTimeout,
		Logger:       opts.Logger,
		Forward: func(next types.DeferState) {
			h.deferNext = next
			h.deferForwarded = true
		},
	})
	h.registerDefaultFlushes()
	return h
}

// registerDefaultFlushes wires the phases the handler owns: the in-progress
// history row, the final record, and the footer.
func (h *Handler) registerDefaultFlushes() {
	h.driver.OnPhase(types.DeferFlushPartialHistory, func(context.Context) error {
		return h.flushPartialHistory()
	})
	h.driver.OnPhase(types.DeferFlushFinal, func(context.Context) error {
		if h.opts.Store == nil {
			return nil
		}
		_, err := h.opts.Store.Write(&types.Record{Payload: &types.FinalRecord{}})
		return err
	})
	h.driver.OnPhase(types.DeferEnd, func(context.Context) error {
		if h.opts.Store == nil {
			return nil
		}
		if err := h.opts.Store.WriteFooter(); err != nil {
			return err
		}
		return h.opts.Store.Sync()
	})
}

// OnFlush registers flush work for a shutdown phase, replacing any built-in
// work for that phase. Must be called before Run.
func (h *Handler) OnFlush(state types.DeferState, fn shutdown.PhaseFunc) {
	h.driver.OnPhase(state, fn)
}

// ShutdownDone is closed when the terminal shutdown phase completes.
func (h *Handler) ShutdownDone() <-chan struct{} { return h.driver.Done() }

// Run consumes records until EOF or a fatal session error.
// Returns:
//   - nil: stream ended cleanly (EOF, or pipe closed after the exit record)
//   - *SessionError with Kind=SessionErrorFrame: lost frame sync
//   - *SessionError with Kind=SessionErrorSequence: sequence violation
//   - *SessionError with Kind=SessionErrorStorage: durable log failure
//   - *SessionError with Kind=SessionErrorCanceled: context canceled
func (h *Handler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return &SessionError{Kind: SessionErrorCanceled, Err: ctx.Err()}
		default:
		}

		body, err := h.fr.ReadBody()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			// Pipe closure after the exit record is normal producer exit
			// behavior; the session outcome is already determined.
			if h.exitSeen {
				h.opts.Logger.Debug("stream: pipe closed after exit record", map[string]any{
					"error": err.Error(),
				})
				return nil
			}
			h.opts.Metrics.IncFrameError()
			h.opts.Logger.Error("stream: frame error", map[string]any{
				"error": err.Error(),
			})
			return &SessionError{Kind: SessionErrorFrame, Err: fmt.Errorf("frame error: %w", err)}
		}

		rec, err := wire.DecodeRecord(body)
		if err != nil {
			// Recoverable at the frame boundary: drop the body, keep the
			// session.
			h.opts.Metrics.IncDecodeError()
			h.opts.Logger.Warn("stream: dropping undecodable record", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		h.opts.Metrics.AddRecordReceived(wire.FrameSize(body))

		if err := h.HandleRecord(ctx, rec); err != nil {
			return err
		}
	}
}

// HandleRecord processes one record. Exported so a router can feed records
// from a shared connection into per-stream handlers.
func (h *Handler) HandleRecord(ctx context.Context, rec *types.Record) error {
	// Data records carry strictly monotonic sequence numbers; control
	// traffic (num 0) is exempt.
	if rec.Num > 0 {
		expected := h.lastNum + 1
		if rec.Num != expected {
			h.opts.Logger.Error("stream: sequence violation", map[string]any{
				"expected": expected,
				"got":      rec.Num,
			})
			return &SessionError{
				Kind: SessionErrorSequence,
				Err:  fmt.Errorf("sequence violation: expected %d, got %d", expected, rec.Num),
			}
		}
		h.lastNum = rec.Num
	}

	if h.opts.Store != nil {
		if _, err := h.opts.Store.Write(rec); err != nil {
			h.opts.Logger.Error("stream: durable log write failed", map[string]any{
				"num":   rec.Num,
				"error": err.Error(),
			})
			return &SessionError{Kind: SessionErrorStorage, Err: err}
		}
	}

	switch p := rec.Payload.(type) {
	case *types.Request:
		return h.handleRequest(ctx, rec, p.Payload)
	case *types.RunExitRecord:
		h.exitSeen = true
		h.exitCode = p.ExitCode
		h.opts.Logger.Info("stream: exit record received", map[string]any{
			"exit_code": p.ExitCode,
		})
	case *types.SummaryRecord:
		h.applySummary(p)
	case *types.HistoryRecord:
		// A complete row supersedes any partial accumulation at its step.
		if p.Step == h.partialStep {
			h.resetPartial()
		}
	case *types.UnknownRecordPayload:
		h.opts.Metrics.IncUnknownTag()
		h.addWarning(fmt.Sprintf("unknown record kind %d preserved in log", p.Tag))
	}

	if h.opts.OnRecord != nil {
		if err := h.opts.OnRecord(ctx, rec); err != nil {
			return err
		}
	}

	return h.respond(rec, h.resultPayloadFor(rec))
}

// resultPayloadFor builds the acknowledgement payload for a data record.
func (h *Handler) resultPayloadFor(rec *types.Record) types.ResultPayload {
	switch p := rec.Payload.(type) {
	case *types.RunRecord:
		return &types.RunUpdateResult{Run: p}
	case *types.RunExitRecord:
		return &types.RunExitResult{}
	case *types.HistoryRecord:
		return &types.HistoryResult{}
	case *types.SummaryRecord:
		return &types.SummaryResult{}
	case *types.OutputRecord, *types.OutputRawRecord:
		return &types.OutputResult{}
	case *types.ConfigRecord:
		return &types.ConfigResult{}
	default:
		return nil
	}
}

// handleRequest answers the call sub-protocol. Built-in kinds are served from
// handler state; everything else is offered to the OnRequest hook.
func (h *Handler) handleRequest(ctx context.Context, rec *types.Record, req types.RequestPayload) error {
	var resp types.ResponsePayload
	switch p := req.(type) {
	case *types.DeferRequest:
		return h.handleDefer(ctx, p)
	case *types.StatusReportRequest:
		// Drain signal: the reader has processed the log through SentOffset.
		if h.opts.Gate != nil {
			h.opts.Gate.MarkRead(p.SentOffset)
		}
		return nil
	case *types.PartialHistoryRequest:
		return h.handlePartialHistory(rec, p)
	case *types.KeepaliveRequest:
		resp = &types.KeepaliveResponse{}
	case *types.StopStatusRequest:
		resp = &types.StopStatusResponse{}
	case *types.StatusRequest:
		resp = &types.StatusResponse{}
	case *types.RunStartRequest:
		resp = &types.RunStartResponse{}
	case *types.ShutdownRequest:
		resp = &types.ShutdownResponse{}
	case *types.CancelRequest:
		resp = &types.CancelResponse{}
	case *types.GetSummaryRequest:
		resp = &types.GetSummaryResponse{Item: h.summaryItems()}
	case *types.InternalMessagesRequest:
		resp = &types.InternalMessagesResponse{Warnings: h.drainWarnings()}
	case *types.PollExitRequest:
		resp = &types.PollExitResponse{Done: h.shutdownFinished(), Exit: h.exitResult()}
	case *types.UnknownRequestPayload:
		h.opts.Metrics.IncUnknownTag()
		h.addWarning(fmt.Sprintf("unknown request kind %d dropped", p.Tag))
		return nil
	default:
		if h.opts.OnRequest != nil {
			var err error
			resp, err = h.opts.OnRequest(ctx, req)
			if err != nil {
				return err
			}
		} else {
			h.opts.Logger.Debug("stream: unhandled request kind", map[string]any{
				"tag": req.RequestTag(),
			})
		}
	}
	if resp == nil {
		return nil
	}
	return h.respond(rec, &types.Response{Payload: resp})
}

// handleDefer runs the shutdown chain. Each completed phase forwards the next
// request; in a single-handler session the forwarding loops directly back
// here instead of crossing the wire.
func (h *Handler) handleDefer(ctx context.Context, req *types.DeferRequest) error {
	state := req.State
	for {
		h.deferForwarded = false
		err := h.driver.Handle(ctx, &types.DeferRequest{State: state})
		if err != nil {
			// Out-of-order or invalid states from the wire are dropped,
			// not fatal; resumed logs replay already-honored requests.
			h.opts.Logger.Warn("stream: dropping defer request", map[string]any{
				"state": state.String(),
				"error": err.Error(),
			})
			return nil
		}
		if !h.deferForwarded {
			return nil
		}
		state = h.deferNext
	}
}

// handlePartialHistory folds a partial update into the in-progress row,
// flushing when the step advances or the producer asks for it.
func (h *Handler) handlePartialHistory(rec *types.Record, req *types.PartialHistoryRequest) error {
	if req.HasStep && req.Step != h.partialStep && len(h.partial) > 0 {
		if err := h.flushPartialHistory(); err != nil {
			return &SessionError{Kind: SessionErrorStorage, Err: err}
		}
	}
	if req.HasStep {
		h.partialStep = req.Step
	}
	for _, item := range req.Item {
		if i, ok := h.partialKeys[item.Key]; ok {
			h.partial[i] = item
			continue
		}
		h.partialKeys[item.Key] = len(h.partial)
		h.partial = append(h.partial, item)
	}
	if req.Flush {
		if err := h.flushPartialHistory(); err != nil {
			return &SessionError{Kind: SessionErrorStorage, Err: err}
		}
	}
	return nil
}

// flushPartialHistory persists the accumulated row as a history record and
// advances the step.
func (h *Handler) flushPartialHistory() error {
	if len(h.partial) == 0 {
		return nil
	}
	items := make([]types.HistoryItem, len(h.partial))
	for i, it := range h.partial {
		items[i] = types.HistoryItem{Key: it.Key, ValueJSON: it.ValueJSON}
	}
	step := h.partialStep
	h.resetPartial()
	h.partialStep = step + 1
	if h.opts.Store == nil {
		return nil
	}
	_, err := h.opts.Store.Write(&types.Record{
		Info:    &types.RecordInfo{StreamID: h.opts.StreamID},
		Payload: &types.HistoryRecord{Step: step, Item: items},
	})
	return err
}

func (h *Handler) resetPartial() {
	h.partial = nil
	h.partialKeys = make(map[string]int)
}

// respond sends a result back when the record asked for one. A nil payload
// with req_resp set is a gap in the handler's coverage; it is logged, and the
// always_send flag forces a bare exit result out anyway so the caller's
// mailbox never hangs on a suppressed answer.
func (h *Handler) respond(rec *types.Record, payload types.ResultPayload) error {
	always := rec.Control != nil && rec.Control.AlwaysSend
	if !rec.WantsResponse() && !always {
		return nil
	}
	if payload == nil {
		h.opts.Logger.Warn("stream: no result payload for record", map[string]any{
			"tag": rec.Payload.RecordTag(),
			"num": rec.Num,
		})
		if !always {
			return nil
		}
		payload = &types.RunExitResult{}
	}

	res := &types.Result{
		UUID:    rec.UUID,
		Payload: payload,
	}
	if rec.Control != nil {
		res.Control = &types.Control{
			MailboxSlot:  rec.Control.MailboxSlot,
			AlwaysSend:   rec.Control.AlwaysSend,
			ConnectionID: rec.Control.ConnectionID,
		}
	}
	if rec.Info != nil {
		res.Info = &types.ResultInfo{
			StreamID:   rec.Info.StreamID,
			TracelogID: rec.Info.TracelogID,
		}
	} else if h.opts.StreamID != "" {
		res.Info = &types.ResultInfo{StreamID: h.opts.StreamID}
	}

	body, err := wire.EncodeResult(res)
	if err != nil {
		return fmt.Errorf("stream: encode result: %w", err)
	}
	h.fwMu.Lock()
	_, err = h.fw.WriteBody(body)
	h.fwMu.Unlock()
	if err != nil {
		return &SessionError{Kind: SessionErrorFrame, Err: fmt.Errorf("write result: %w", err)}
	}
	h.opts.Metrics.AddResultSent(wire.FrameSize(body))
	return nil
}

func (h *Handler) applySummary(s *types.SummaryRecord) {
	for _, item := range s.Update {
		h.summary[item.Key] = item.ValueJSON
	}
	for _, item := range s.Remove {
		delete(h.summary, item.Key)
	}
}

func (h *Handler) summaryItems() []types.SummaryItem {
	items := make([]types.SummaryItem, 0, len(h.summary))
	for k, v := range h.summary {
		items = append(items, types.SummaryItem{Key: k, ValueJSON: v})
	}
	return items
}

func (h *Handler) addWarning(msg string) {
	h.warnings = append(h.warnings, msg)
}

func (h *Handler) drainWarnings() []string {
	w := h.warnings
	h.warnings = nil
	return w
}

func (h *Handler) exitResult() *types.RunExitResult {
	if !h.exitSeen {
		return nil
	}
	return &types.RunExitResult{}
}

func (h *Handler) shutdownFinished() bool {
	select {
	case <-h.driver.Done():
		return true
	default:
		return false
	}
}

// ExitSeen reports whether the exit record has arrived.
func (h *Handler) ExitSeen() bool { return h.exitSeen }

// LastNum returns the highest validated sequence number.
func (h *Handler) LastNum() int64 { return h.lastNum }
