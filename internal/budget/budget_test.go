package budget_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satyajit903/inflow-ai/internal/budget"
)

var _ = Describe("TokenBudget", func() {
	Describe("CanUse", func() {
		It("should allow spend within both limits", func() {
			b := budget.New(1000)
			Expect(b.CanUse(100)).To(BeTrue())
		})

		It("should deny spend beyond the hourly limit", func() {
			// Hourly allowance is a tenth of the daily limit
			b := budget.New(1000)
			Expect(b.CanUse(101)).To(BeFalse())
			Expect(b.CanUse(100)).To(BeTrue())
		})

		It("should deny once recorded usage reaches the hourly limit", func() {
			b := budget.New(1000)
			b.Record(60, 40)
			Expect(b.CanUse(1)).To(BeFalse())
		})
	})

	Describe("Record", func() {
		It("should charge input and output tokens together", func() {
			b := budget.New(10000)
			b.Record(300, 200)

			usage := b.Usage()
			Expect(usage.DailyUsed).To(Equal(int64(500)))
			Expect(usage.HourlyUsed).To(Equal(int64(500)))
		})
	})

	Describe("Usage", func() {
		It("should report limits and percentage", func() {
			b := budget.New(10000)
			b.Record(500, 500)

			usage := b.Usage()
			Expect(usage.DailyLimit).To(Equal(int64(10000)))
			Expect(usage.HourlyLimit).To(Equal(int64(1000)))
			Expect(usage.DailyPercent).To(BeNumerically("~", 10.0, 0.01))
		})
	})

	Describe("New", func() {
		It("should fall back to the default limit for non-positive input", func() {
			b := budget.New(0)
			Expect(b.Usage().DailyLimit).To(Equal(int64(1_000_000)))
		})
	})
})
