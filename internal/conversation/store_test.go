package conversation_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"buiq-backend/internal/conversation"
	"buiq-backend/internal/models"
)

var _ = Describe("Store", func() {
	var (
		store *conversation.Store
		clock time.Time
	)

	BeforeEach(func() {
		clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		store = conversation.NewStoreWithClock(func() time.Time { return clock })
	})

	It("starts empty", func() {
		Expect(store.Len()).To(Equal(0))
		Expect(store.Messages()).To(BeEmpty())
	})

	It("appends in display order", func() {
		store.Append("Hello", models.SenderUser)
		clock = clock.Add(time.Second)
		store.Append("Hi there", models.SenderBot)

		msgs := store.Messages()
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].Text).To(Equal("Hello"))
		Expect(msgs[0].Sender).To(Equal(models.SenderUser))
		Expect(msgs[1].Text).To(Equal("Hi there"))
		Expect(msgs[1].Sender).To(Equal(models.SenderBot))
	})

	It("uses the creation time in milliseconds as the id", func() {
		msg := store.Append("Hello", models.SenderUser)

		Expect(msg.ID).To(Equal(clock.UnixMilli()))
		Expect(msg.Timestamp).To(Equal(clock))
	})

	It("keeps ids unique when messages share a millisecond", func() {
		first := store.Append("one", models.SenderUser)
		second := store.Append("two", models.SenderBot)
		third := store.Append("three", models.SenderUser)

		Expect(second.ID).To(Equal(first.ID + 1))
		Expect(third.ID).To(Equal(second.ID + 1))
	})

	It("never lets timestamps go backwards", func() {
		first := store.Append("one", models.SenderUser)
		clock = clock.Add(-time.Hour)
		second := store.Append("two", models.SenderBot)

		Expect(second.Timestamp).To(Equal(first.Timestamp))
		Expect(second.ID).To(BeNumerically(">", first.ID))
	})

	It("hands out copies that cannot change stored history", func() {
		store.Append("original", models.SenderUser)

		msgs := store.Messages()
		msgs[0].Text = "tampered"

		Expect(store.Messages()[0].Text).To(Equal("original"))
	})

	It("stays ordered under concurrent appends", func() {
		real := conversation.NewStore()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				real.Append("msg", models.SenderUser)
			}()
		}
		wg.Wait()

		msgs := real.Messages()
		Expect(msgs).To(HaveLen(50))
		for i := 1; i < len(msgs); i++ {
			Expect(msgs[i].ID).To(BeNumerically(">", msgs[i-1].ID))
			Expect(msgs[i].Timestamp.Before(msgs[i-1].Timestamp)).To(BeFalse())
		}
	})
})
