package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/eventstream"
)

// recordingPublisher keeps every transcript it receives. When gate is set,
// publishes block until it is closed.
type recordingPublisher struct {
	mu    sync.Mutex
	got   []*eventstream.Transcript
	gate  chan struct{}
	err   error
	calls int
}

func (r *recordingPublisher) PublishTranscript(_ context.Context, t *eventstream.Transcript) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, t)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, t := range r.got {
		out = append(out, t.SessionID)
	}
	return out
}

func transcript(id string) *eventstream.Transcript {
	return &eventstream.Transcript{SessionID: id, Source: eventstream.TranscriptSource{Provider: "openai"}}
}

var _ = Describe("Worker Pool", func() {
	var pub *recordingPublisher

	BeforeEach(func() {
		pub = &recordingPublisher{}
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(MatchError(ErrNoPublisher))
	})

	It("applies defaults", func() {
		wp, err := NewPool(&Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(wp.config.QueueSize).To(Equal(defaultJobQueueSize))
		Expect(wp.config.PublishTimeout).To(Equal(defaultPublishTimeout))
	})

	It("publishes every enqueued transcript before Close returns", func() {
		wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 2})
		Expect(err).NotTo(HaveOccurred())

		for _, id := range []string{"a", "b", "c"} {
			Expect(wp.Enqueue(Job{Transcript: transcript(id)})).To(BeTrue())
		}
		wp.Close()

		Expect(pub.sessions()).To(ConsistOf("a", "b", "c"))
		Expect(wp.Stats()).To(Equal(Stats{Published: 3}))
	})

	It("drops jobs when the queue is full", func() {
		pub.gate = make(chan struct{})
		wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		// The single worker takes the first job and blocks on the gate.
		Expect(wp.Enqueue(Job{Transcript: transcript("first")})).To(BeTrue())
		Eventually(func() int { return len(wp.queue) }).Should(Equal(0))

		Expect(wp.Enqueue(Job{Transcript: transcript("second")})).To(BeTrue())
		Expect(wp.Enqueue(Job{Transcript: transcript("third")})).To(BeFalse())

		close(pub.gate)
		wp.Close()

		Expect(pub.sessions()).To(ConsistOf("first", "second"))
		Expect(wp.Stats().Dropped).To(Equal(uint64(1)))
	})

	It("counts publish failures without stopping", func() {
		pub.err = errors.New("broker down")
		wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())

		wp.Enqueue(Job{Transcript: transcript("x")})
		wp.Enqueue(Job{Transcript: transcript("y")})
		wp.Close()

		Expect(wp.Stats()).To(Equal(Stats{Failed: 2}))
	})

	It("rejects jobs after Close and tolerates repeated Close", func() {
		wp, err := NewPool(&Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())
		wp.Close()
		wp.Close()

		Expect(wp.Enqueue(Job{Transcript: transcript("late")})).To(BeFalse())
		Expect(wp.Enqueue(Job{})).To(BeFalse())
	})
})
