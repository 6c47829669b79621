package protocol

// Framing limits enforced by client sessions and the upstream reader.
// A session breaching a hard limit is closed; see the session read loop.
const (
	// ScratchSize is the per-read buffer for client sockets.
	ScratchSize = 1024

	// MaxFrameSize caps one client line, delimiter included.
	MaxFrameSize = 8 * 1024

	// MaxAccumulatorSize caps unparsed bytes buffered per session.
	MaxAccumulatorSize = 64 * 1024

	// MaxFramesPerRead bounds frames handled per read cycle so one
	// chatty client cannot starve the rest.
	MaxFramesPerRead = 10

	// MaxUpstreamFrameSize caps one game-server line; replication
	// batches run larger than client requests.
	MaxUpstreamFrameSize = 12 * 1024

	// DispatchBatchSize bounds events pushed per queue operation.
	DispatchBatchSize = 10

	// DefaultMaxSessions caps concurrent client connections when the
	// config does not override it.
	DefaultMaxSessions = 1000
)
