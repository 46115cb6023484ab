package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/halcyonai/chat-gateway/internal/inference"
)

// relayResult is what one relay loop produced.
type relayResult struct {
	// Usage is the token accounting captured from the metadata event;
	// zero if the stream ended before producing one.
	Usage inference.TokenUsage
	// Events is the number of content events forwarded.
	Events int
	// Err is the terminal error, if the stream did not end cleanly.
	Err error
}

// relay consumes the provider stream to exhaustion or a terminal error.
//
// Content events are written to the transport as they arrive, flushed per
// event, in provider order; no batching or coalescing. The metadata event is
// captured (overwritten, a session reports it once) and never forwarded. A
// terminal error stops the loop without writing anything for it: the caller
// owns the single error envelope.
func (g *Gateway) relay(ctx context.Context, stream inference.Stream, w http.ResponseWriter) relayResult {
	flusher, canFlush := w.(http.Flusher)

	var res relayResult
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return res
			}
			res.Err = err
			return res
		}

		switch e := ev.(type) {
		case inference.Metadata:
			res.Usage = e.Usage

		case inference.Content:
			if _, werr := w.Write(e.Payload); werr != nil {
				// Caller is gone; stop relaying but let the stream
				// end normally so usage still gets recorded.
				log.Debug().Err(werr).Msg("relay: client disconnected")
				return res
			}
			if canFlush {
				flusher.Flush()
			}
			res.Events++
			if g.metrics != nil {
				g.metrics.RelayedEventsTotal.Inc()
			}
		}
	}
}
