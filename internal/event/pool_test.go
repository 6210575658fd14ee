package event

import "testing"

func TestEnvelopePool(t *testing.T) {
	env := AcquireEnvelope()
	env.Type = TypeAtomicBuy
	env.Seq = 7
	env.Payload = append(env.Payload, []byte(`{"seq":7}`)...)

	ReleaseEnvelope(env)

	// Released envelopes come back zeroed.
	env2 := AcquireEnvelope()
	if env2.Type != "" || env2.Seq != 0 || len(env2.Payload) != 0 {
		t.Errorf("pooled envelope not reset: %+v", env2)
	}
	ReleaseEnvelope(env2)

	// Nil release is a no-op.
	ReleaseEnvelope(nil)
}

func TestWarmup(t *testing.T) {
	Warmup() // must not panic or leak
	env := AcquireEnvelope()
	if env == nil {
		t.Fatal("pool should serve after warmup")
	}
	ReleaseEnvelope(env)
}
