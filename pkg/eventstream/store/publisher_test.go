package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/eventstream/store"
	"github.com/papercomputeco/reel/pkg/storage/inmemory"
)

var _ = Describe("Publisher", func() {
	var (
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		ctx = context.Background()
	})

	It("requires a driver", func() {
		_, err := store.NewPublisher(nil)
		Expect(err).To(MatchError(store.ErrNoDriver))
	})

	It("stores published transcripts", func() {
		pub, err := store.NewPublisher(driver)
		Expect(err).NotTo(HaveOccurred())

		Expect(pub.PublishTranscript(ctx, &eventstream.Transcript{EventID: "e1", Text: "hi"})).To(Succeed())

		got, err := driver.Get(ctx, "e1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Text).To(Equal("hi"))
	})

	It("tolerates redelivery", func() {
		pub, err := store.NewPublisher(driver)
		Expect(err).NotTo(HaveOccurred())

		t := &eventstream.Transcript{EventID: "e1"}
		Expect(pub.PublishTranscript(ctx, t)).To(Succeed())
		Expect(pub.PublishTranscript(ctx, t)).To(Succeed())

		n, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("rejects nil and id-less transcripts", func() {
		pub, err := store.NewPublisher(driver)
		Expect(err).NotTo(HaveOccurred())

		Expect(pub.PublishTranscript(ctx, nil)).To(MatchError(eventstream.ErrNilTranscript))
		Expect(pub.PublishTranscript(ctx, &eventstream.Transcript{})).To(HaveOccurred())
	})
})
