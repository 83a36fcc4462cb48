package storage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/storage"
)

var _ = Describe("ListOptions", func() {
	It("applies the default limit", func() {
		Expect(storage.ListOptions{}.EffectiveLimit()).To(Equal(storage.DefaultListLimit))
		Expect(storage.ListOptions{Limit: -3}.EffectiveLimit()).To(Equal(storage.DefaultListLimit))
		Expect(storage.ListOptions{Limit: 7}.EffectiveLimit()).To(Equal(7))
	})
})

var _ = Describe("Validate", func() {
	It("rejects nil transcripts", func() {
		Expect(storage.Validate(nil)).To(MatchError(storage.ErrNilTranscript))
	})

	It("requires an event id", func() {
		Expect(storage.Validate(&eventstream.Transcript{})).To(MatchError(storage.ErrMissingEventID))
	})

	It("accepts identified transcripts", func() {
		Expect(storage.Validate(&eventstream.Transcript{EventID: "evt"})).To(Succeed())
	})
})

var _ = Describe("NotFoundError", func() {
	It("names the missing event", func() {
		Expect(storage.NotFoundError{EventID: "evt-1"}.Error()).To(Equal("transcript not found: evt-1"))
		Expect(storage.NotFoundError{}.Error()).To(Equal("transcript not found"))
	})
})
