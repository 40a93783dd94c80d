package invoker_test

import (
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satyajit903/inflow-ai/internal/circuitbreaker"
	"github.com/satyajit903/inflow-ai/internal/invoker"
)

var _ = Describe("Invoker", func() {
	var (
		registry *circuitbreaker.Registry
		inv      *invoker.Invoker
	)

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(circuitbreaker.Policy{
			FailureThreshold: 3,
			RecoveryTimeout:  100 * time.Millisecond,
			HalfOpenMaxCalls: 1,
		}, nil, nil)
		inv = invoker.New(registry, nil, nil)
	})

	Describe("Invoke", func() {
		It("should return the operation's result on success", func() {
			result, err := inv.Invoke("risk", func() (any, error) {
				return map[string]any{"level": "low"}, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(HaveKeyWithValue("level", "low"))
		})

		It("should propagate the operation's error verbatim", func() {
			opErr := errors.New("risk service timeout")
			_, err := inv.Invoke("risk", func() (any, error) {
				return nil, opErr
			})
			// Not wrapped: callers must be able to identify the original error
			Expect(err).To(BeIdenticalTo(opErr))
		})

		It("should record failures on the dependency's breaker", func() {
			opErr := errors.New("boom")
			for i := 0; i < 3; i++ {
				_, _ = inv.Invoke("risk", func() (any, error) {
					return nil, opErr
				})
			}
			Expect(registry.StateOf("risk")).To(Equal(circuitbreaker.StateOpen))
		})

		It("should mutate only the invoked dependency's breaker", func() {
			opErr := errors.New("boom")
			for i := 0; i < 3; i++ {
				_, _ = inv.Invoke("risk", func() (any, error) {
					return nil, opErr
				})
			}
			Expect(registry.StateOf("risk")).To(Equal(circuitbreaker.StateOpen))
			Expect(registry.StateOf("viability")).To(Equal(circuitbreaker.StateClosed))
		})

		Context("when the circuit is open", func() {
			var callCount atomic.Int64

			BeforeEach(func() {
				callCount.Store(0)
				opErr := errors.New("boom")
				for i := 0; i < 3; i++ {
					_, _ = inv.Invoke("risk", func() (any, error) {
						callCount.Add(1)
						return nil, opErr
					})
				}
				Expect(callCount.Load()).To(Equal(int64(3)))
			})

			It("should fast-fail with CircuitOpenError without invoking the operation", func() {
				_, err := inv.Invoke("risk", func() (any, error) {
					callCount.Add(1)
					return "never", nil
				})

				var openErr *invoker.CircuitOpenError
				Expect(errors.As(err, &openErr)).To(BeTrue())
				Expect(openErr.Dependency).To(Equal("risk"))
				Expect(callCount.Load()).To(Equal(int64(3)))
			})

			It("should allow a trial call after the recovery timeout", func() {
				time.Sleep(110 * time.Millisecond)

				result, err := inv.Invoke("risk", func() (any, error) {
					callCount.Add(1)
					return "recovered", nil
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(Equal("recovered"))
				Expect(callCount.Load()).To(Equal(int64(4)))
				Expect(registry.StateOf("risk")).To(Equal(circuitbreaker.StateClosed))
			})

			It("should reopen immediately when the trial call fails", func() {
				time.Sleep(110 * time.Millisecond)

				opErr := errors.New("still down")
				_, err := inv.Invoke("risk", func() (any, error) {
					return nil, opErr
				})
				Expect(err).To(BeIdenticalTo(opErr))
				Expect(registry.StateOf("risk")).To(Equal(circuitbreaker.StateOpen))
			})
		})

		It("should never invoke the operation more than once per call", func() {
			var invocations atomic.Int64
			_, _ = inv.Invoke("risk", func() (any, error) {
				invocations.Add(1)
				return nil, errors.New("boom")
			})
			Expect(invocations.Load()).To(Equal(int64(1)))
		})
	})

	Describe("StateOf", func() {
		It("should report CLOSED for a dependency never invoked", func() {
			Expect(inv.StateOf("timing")).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("CircuitOpenError", func() {
		It("should identify the dependency in its message", func() {
			err := &invoker.CircuitOpenError{Dependency: "insight"}
			Expect(err.Error()).To(ContainSubstring("insight"))
		})
	})
})
