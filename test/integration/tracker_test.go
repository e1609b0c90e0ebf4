//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/ddobrev25/coding-time-tracker/internal/clock"
	"github.com/ddobrev25/coding-time-tracker/internal/daemon"
	"github.com/ddobrev25/coding-time-tracker/internal/domain"
	"github.com/ddobrev25/coding-time-tracker/internal/infra"
	"github.com/ddobrev25/coding-time-tracker/internal/ledger"
	"github.com/ddobrev25/coding-time-tracker/internal/target"
	"github.com/ddobrev25/coding-time-tracker/internal/trigger"
	"github.com/ddobrev25/coding-time-tracker/internal/usecase"
	"github.com/ddobrev25/coding-time-tracker/test/fixtures"
)

var _ = Describe("Tracker", func() {
	var (
		ledgerPath string
		cleanup    func()
		presence   *fixtures.FakePresence
		prompt     *fixtures.QueuedPrompt
		fake       *clock.Fake
		registry   *infra.FileRegistry
		guard      *usecase.ActivityGuard
		tracker    *daemon.Tracker
		cancel     context.CancelFunc
		done       chan error
	)

	openLedger := func() *ledger.Ledger {
		return ledger.New(infra.NewFileStore(ledgerPath))
	}

	BeforeEach(func() {
		var err error
		ledgerPath, cleanup, err = fixtures.LedgerFile()
		Expect(err).NotTo(HaveOccurred())

		presence = fixtures.NewFakePresence()
		prompt = fixtures.NewQueuedPrompt()
		fake = clock.NewFake(time.Now())
		registry = infra.NewFileRegistry(infra.RunFileFor(ledgerPath))

		logger := zap.NewNop()
		poller := usecase.NewLivenessPoller(presence, logger)
		targets := target.NewRegistry()

		acc, err := usecase.NewAccumulator(usecase.AccumulatorConfig{
			SampleInterval:  time.Millisecond,
			FlushThreshold:  10 * time.Millisecond,
			FlushOnShutdown: true,
		}, poller, openLedger(), targets, logger)
		Expect(err).NotTo(HaveOccurred())

		guard, err = usecase.NewActivityGuard(
			usecase.GuardConfig{CheckInterval: 30 * time.Minute, Granularity: time.Millisecond},
			poller, presence, prompt, targets, logger,
			usecase.WithClock(fake))
		Expect(err).NotTo(HaveOccurred())

		tracker = daemon.NewTracker(daemon.TrackerConfig{HeartbeatInterval: 5 * time.Millisecond},
			acc, guard, registry,
			domain.TrackerInstance{PID: os.Getpid(), Ledger: ledgerPath},
			logger)
	})

	start := func() {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- tracker.Run(ctx) }()
		Eventually(guard.Trigger().State).Should(Equal(trigger.StateRunning))
	}

	stop := func() {
		cancel()
		Eventually(done, 2*time.Second).Should(Receive(MatchError(context.Canceled)))
	}

	AfterEach(func() {
		if cancel != nil {
			cancel()
		}
		cleanup()
	})

	Context("when no watched application runs", func() {
		It("never creates the ledger", func() {
			start()
			Consistently(func() bool {
				_, err := os.Stat(ledgerPath)
				return os.IsNotExist(err)
			}, 50*time.Millisecond).Should(BeTrue())
			stop()

			_, err := os.Stat(ledgerPath)
			Expect(os.IsNotExist(err)).To(BeTrue())
			Expect(prompt.Asked()).To(BeZero())
		})
	})

	Context("when an editor is open", func() {
		BeforeEach(func() {
			presence.Launch("code")
		})

		It("accumulates time into the ledger file", func() {
			start()
			Eventually(func() (time.Duration, error) {
				total, _, err := openLedger().TotalTime()
				return total, err
			}, time.Second).Should(BeNumerically(">", 10*time.Millisecond))
			stop()

			data, err := os.ReadFile(ledgerPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(HavePrefix("TimeCreated: "))
			Expect(string(data)).To(ContainSubstring("\nTotalTime: 00:00:00."))
		})

		It("continues an existing total across restarts", func() {
			Expect(openLedger().SetTotalTime(2 * time.Hour)).To(Succeed())

			start()
			Eventually(func() time.Duration {
				total, _, _ := openLedger().TotalTime()
				return total
			}, time.Second).Should(BeNumerically(">", 2*time.Hour))
			stop()
		})

		It("registers itself while running", func() {
			start()
			alive, inst, err := registry.IsAlive()
			Expect(err).NotTo(HaveOccurred())
			Expect(alive).To(BeTrue())
			Expect(inst.Ledger).To(Equal(ledgerPath))
			stop()

			inst, err = registry.Get()
			Expect(err).NotTo(HaveOccurred())
			Expect(inst).To(BeNil())
		})

		It("closes the editor when the user answers no", func() {
			prompt.Default = domain.AnswerNo
			start()

			fake.Advance(30 * time.Minute)
			Eventually(presence.Terminated).Should(ConsistOf("code"))
			Eventually(guard.Checks).Should(Equal(1))

			running, _ := presence.IsRunning("code")
			Expect(running).To(BeFalse())
			stop()
		})

		It("keeps the editor open on yes and asks again one interval later", func() {
			prompt.Default = domain.AnswerYes
			start()

			fake.Advance(30 * time.Minute)
			Eventually(guard.Checks).Should(Equal(1))
			fake.Advance(29 * time.Minute)
			Consistently(guard.Checks, 20*time.Millisecond).Should(Equal(1))
			fake.Advance(time.Minute)
			Eventually(guard.Checks).Should(Equal(2))

			Expect(presence.Terminated()).To(BeEmpty())
			stop()
		})

		It("does not check while paused", func() {
			prompt.Default = domain.AnswerNo
			start()

			fake.Advance(10 * time.Minute)
			Expect(tracker.PauseChecks()).To(Succeed())
			fake.Advance(time.Hour)
			Consistently(prompt.Asked, 20*time.Millisecond).Should(BeZero())

			Expect(tracker.ResumeChecks()).To(Succeed())
			fake.Advance(20 * time.Minute)
			Eventually(prompt.Asked).Should(Equal(1))
			stop()
		})
	})
})
