package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/halcyonai/chat-gateway/internal/auth"
	"github.com/halcyonai/chat-gateway/internal/config"
	"github.com/halcyonai/chat-gateway/internal/inference"
	"github.com/halcyonai/chat-gateway/internal/monitoring"
	"github.com/halcyonai/chat-gateway/internal/usage"
	"github.com/halcyonai/chat-gateway/internal/utils"
)

const internalErrorMessage = "Internal Error"

// handleChat runs one request through the gateway:
//
//	AUTHENTICATING -> QUOTA_CHECK -> VALIDATING_INPUT -> STREAMING -> RECORDING
//
// Failures before streaming map to distinct HTTP statuses with a single
// {"error": ...} body. Once the 200 is committed, failures can only be
// reported in-body. Recording runs whenever a provider session was opened,
// success or not; rejected requests never reach it.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	start := g.now()
	requestID := uuid.NewString()

	event := monitoring.RequestEvent{Timestamp: start, RequestID: requestID, Model: g.cfg.Inference.ModelID}
	defer func() {
		event.DurationMs = time.Since(start).Milliseconds()
		if g.tracker != nil {
			g.tracker.RecordRequest(&event)
		}
		if g.metrics != nil {
			g.metrics.RequestsTotal.WithLabelValues(strconv.Itoa(event.StatusCode)).Inc()
			g.metrics.RequestDuration.Observe(time.Since(start).Seconds())
		}
	}()

	// The response must complete on every exit path, unexpected panics
	// included.
	committed := false
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("request_id", requestID).Interface("panic", rec).Msg("chat: handler panicked")
			if !committed {
				event.StatusCode = http.StatusInternalServerError
				g.writeError(w, internalErrorMessage, http.StatusInternalServerError)
			} else {
				g.writeStreamError(w, internalErrorMessage)
			}
			event.ErrorMsg = internalErrorMessage
		}
	}()

	if r.Method != http.MethodPost {
		event.StatusCode = http.StatusMethodNotAllowed
		g.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// AUTHENTICATING
	rawToken, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		event.StatusCode = http.StatusForbidden
		event.ErrorMsg = err.Error()
		g.writeError(w, err.Error(), http.StatusForbidden)
		return
	}
	identity, err := g.verifier.Verify(rawToken)
	if err != nil {
		log.Warn().
			Str("request_id", requestID).
			Str("token", utils.MaskToken(rawToken)).
			Msg("chat: token verification failed")
		event.StatusCode = http.StatusForbidden
		event.ErrorMsg = err.Error()
		g.writeError(w, err.Error(), http.StatusForbidden)
		return
	}
	event.Subject = identity.Subject

	// QUOTA_CHECK
	model := g.cfg.Inference.ModelID
	decision, err := g.guard.Admit(r.Context(), identity.Subject, model, start)
	if err != nil {
		// A store failure must fail the request, never bypass quota.
		log.Error().Err(err).Str("request_id", requestID).Msg("chat: quota lookup failed")
		event.StatusCode = http.StatusInternalServerError
		event.ErrorMsg = internalErrorMessage
		g.writeError(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}
	if !decision.Allowed {
		if g.metrics != nil {
			g.metrics.QuotaRejectionsTotal.Inc()
		}
		event.StatusCode = http.StatusTooManyRequests
		event.ErrorMsg = decision.Reason
		g.writeError(w, decision.Reason, http.StatusTooManyRequests)
		return
	}

	// VALIDATING_INPUT
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		event.StatusCode = http.StatusBadRequest
		event.ErrorMsg = "failed to read request body"
		g.writeError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	history, err := inference.ParseHistory(body)
	if err != nil {
		event.StatusCode = http.StatusBadRequest
		event.ErrorMsg = err.Error()
		g.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// STREAMING: commit status and headers. From here on the status line
	// is fixed; errors can only appear in the body.
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	committed = true
	event.StatusCode = http.StatusOK

	stream, err := g.opener.Open(r.Context(), history)
	if err != nil {
		msg := internalErrorMessage
		if errors.Is(err, inference.ErrAccessDenied) {
			msg = err.Error()
		} else {
			log.Error().Err(err).Str("request_id", requestID).Msg("chat: failed to open provider stream")
		}
		event.ErrorMsg = msg
		g.writeStreamError(w, msg)
		return
	}
	defer func() { _ = stream.Close() }()

	result := g.relay(r.Context(), stream, w)
	event.EventsRelayed = result.Events
	event.InputTokens = result.Usage.InputTokens
	event.OutputTokens = result.Usage.OutputTokens
	event.TotalTokens = result.Usage.TotalTokens

	if result.Err != nil {
		var upstream *inference.UpstreamError
		if errors.As(result.Err, &upstream) {
			if g.metrics != nil {
				g.metrics.StreamErrorsTotal.WithLabelValues(string(upstream.Kind)).Inc()
			}
			event.ErrorMsg = upstream.Message
			g.writeStreamError(w, upstream.Message)
		} else {
			log.Error().Err(result.Err).Str("request_id", requestID).Msg("chat: stream failed")
			event.ErrorMsg = internalErrorMessage
			g.writeStreamError(w, internalErrorMessage)
		}
	}

	// RECORDING: unconditional once the session was opened, with whatever
	// usage the stream reported (zero if it died before metadata). The
	// response is already on the wire, so this must not depend on the
	// caller still being connected.
	recordCtx := context.WithoutCancel(r.Context())
	g.recorder.Record(recordCtx, identity.Subject, model, usage.PeriodStart(start), usage.Delta{
		InvocationCount: 1,
		InputTokens:     result.Usage.InputTokens,
		OutputTokens:    result.Usage.OutputTokens,
		TotalTokens:     result.Usage.TotalTokens,
	})

	if g.metrics != nil {
		g.metrics.TokensPerRequest.WithLabelValues("input").Observe(float64(result.Usage.InputTokens))
		g.metrics.TokensPerRequest.WithLabelValues("output").Observe(float64(result.Usage.OutputTokens))
	}
}

// writeError writes a pre-commit JSON error response.
func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	g.writeErrorValue(w, msg)
}

// writeStreamError writes the single in-body error value used after the
// status line is committed.
func (g *Gateway) writeStreamError(w http.ResponseWriter, msg string) {
	g.writeErrorValue(w, msg)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (g *Gateway) writeErrorValue(w io.Writer, msg string) {
	_, _ = w.Write(utils.ErrorValue(msg))
}
