package event

import (
	"sync"
)

// Envelope is the wire form of an event: the type tag plus the marshaled
// payload. Envelopes are pooled because every successful operation
// produces one per connected subscriber.
//
// Usage:
//
//	env := AcquireEnvelope()
//	env.Type = ev.GetType()
//	// ... write to subscriber ...
//	ReleaseEnvelope(env)  // Return to pool after the write completes
type Envelope struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	Payload []byte `json:"payload"`
}

var envelopePool = sync.Pool{
	New: func() interface{} {
		return &Envelope{}
	},
}

// AcquireEnvelope gets an Envelope from the pool.
// The returned envelope has zero values and must be initialized.
func AcquireEnvelope() *Envelope {
	return envelopePool.Get().(*Envelope)
}

// ReleaseEnvelope returns an Envelope to the pool.
// The envelope is reset to zero values before being pooled.
func ReleaseEnvelope(env *Envelope) {
	if env == nil {
		return
	}
	env.Type = ""
	env.Seq = 0
	env.Payload = env.Payload[:0]

	envelopePool.Put(env)
}

// Warmup pre-allocates pooled envelopes to reduce GC pressure at startup.
// It acquires and releases a batch.
func Warmup() {
	const batchSize = 1000

	envs := make([]*Envelope, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		envs = append(envs, AcquireEnvelope())
	}
	for _, env := range envs {
		ReleaseEnvelope(env)
	}
}
