package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wealthos.app/roundtable/common/id"
	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/model"
	"wealthos.app/roundtable/internal/service"
	"wealthos.app/roundtable/internal/store"
)

var _ = Describe("DiscussionService", func() {
	var (
		discussions *mockDiscussionStore
		personas    *mockPersonaStore
		locks       *mockAdvanceLockStore
		eng         *mockEngine
		svc         service.DiscussionService
	)

	ptr := func(v int64) *int64 { return &v }

	BeforeEach(func() {
		Expect(id.Init(1)).To(Succeed())

		discussions = &mockDiscussionStore{}
		personas = &mockPersonaStore{}
		locks = &mockAdvanceLockStore{}
		eng = &mockEngine{}
		svc = service.NewDiscussionService(discussions, personas, locks, eng, time.Minute)
	})

	Describe("Create", func() {
		validInput := func() service.CreateDiscussionInput {
			return service.CreateDiscussionInput{
				OrgID: 7,
				Name:  "succession planning",
				Rules: []string{"stay on topic"},
				Seats: []service.SeatInput{
					{Role: model.RoleManager, PersonaID: ptr(10)},
					{Role: model.RoleExpert, PersonaID: ptr(11)},
					{Role: model.RoleUser},
				},
			}
		}

		It("assigns seats in roster order and persists atomically", func() {
			var gotParticipants []model.Participant
			discussions.createFn = func(ctx context.Context, d *model.Discussion, parts []model.Participant) error {
				gotParticipants = parts
				return nil
			}

			d, err := svc.Create(context.Background(), validInput())
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Status).To(Equal(model.DiscussionStatusActive))
			Expect(d.ID).NotTo(BeZero())

			Expect(gotParticipants).To(HaveLen(3))
			for i, p := range gotParticipants {
				Expect(p.Seat).To(Equal(i))
				Expect(p.DiscussionID).To(Equal(d.ID))
			}
			Expect(gotParticipants[2].PersonaID).To(BeNil())
		})

		It("rejects a roster without a manager", func() {
			input := validInput()
			input.Seats = input.Seats[1:]

			_, err := svc.Create(context.Background(), input)
			Expect(err).To(MatchError(service.ErrNoManagerSeat))
			Expect(discussions.createCalls).To(BeZero())
		})

		It("rejects a roster with two user seats", func() {
			input := validInput()
			input.Seats = append(input.Seats, service.SeatInput{Role: model.RoleUser})

			_, err := svc.Create(context.Background(), input)
			Expect(err).To(MatchError(service.ErrTooManyUserSeats))
		})

		It("rejects an empty roster", func() {
			input := validInput()
			input.Seats = nil

			_, err := svc.Create(context.Background(), input)
			Expect(err).To(MatchError(engine.ErrNoParticipants))
		})

		It("rejects an agent seat without a persona", func() {
			input := validInput()
			input.Seats[1].PersonaID = nil

			_, err := svc.Create(context.Background(), input)
			Expect(err).To(HaveOccurred())
			Expect(discussions.createCalls).To(BeZero())
		})

		It("rejects an unknown persona reference", func() {
			personas.getByIDFn = func(ctx context.Context, id int64) (*model.Persona, error) {
				return nil, store.ErrNotFound
			}

			_, err := svc.Create(context.Background(), validInput())
			Expect(err).To(MatchError(service.ErrPersonaNotFound))
		})
	})

	Describe("Get", func() {
		It("maps a missing discussion to the service sentinel", func() {
			eng.snapshotFn = func(ctx context.Context, discussionID int64) (*engine.Result, error) {
				return nil, store.ErrNotFound
			}

			_, err := svc.Get(context.Background(), 42)
			Expect(err).To(MatchError(service.ErrDiscussionNotFound))
		})

		It("passes the snapshot through", func() {
			want := &engine.Result{SpeechCounts: map[int]int{0: 1}}
			eng.snapshotFn = func(ctx context.Context, discussionID int64) (*engine.Result, error) {
				Expect(discussionID).To(Equal(int64(42)))
				return want, nil
			}

			res, err := svc.Get(context.Background(), 42)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeIdenticalTo(want))
		})
	})

	Describe("Advance", func() {
		It("acquires the in-flight marker and releases it on success", func() {
			_, err := svc.Advance(context.Background(), 42, "hello", "Alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(locks.acquireCalls).To(Equal(1))
			Expect(locks.releaseCalls).To(Equal(1))
			Expect(locks.lastOwner).NotTo(BeEmpty())
		})

		It("releases the marker even when the engine fails", func() {
			eng.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				return nil, errors.New("boom")
			}

			_, err := svc.Advance(context.Background(), 42, "hello", "Alice")
			Expect(err).To(HaveOccurred())
			Expect(locks.releaseCalls).To(Equal(1))
		})

		It("reports a held marker as retryable busy", func() {
			locks.acquireFn = func(ctx context.Context, discussionID int64, owner string, ttl time.Duration) error {
				return store.ErrLocked
			}

			_, err := svc.Advance(context.Background(), 42, "hello", "Alice")
			Expect(err).To(MatchError(service.ErrAdvanceInFlight))
			Expect(locks.releaseCalls).To(BeZero())
		})

		It("bounds the engine call with the advance budget", func() {
			svc = service.NewDiscussionService(discussions, personas, locks, eng, 50*time.Millisecond)

			var deadline time.Time
			eng.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				d, ok := ctx.Deadline()
				Expect(ok).To(BeTrue())
				deadline = d
				return &engine.Result{}, nil
			}

			_, err := svc.Advance(context.Background(), 42, "hello", "Alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(time.Until(deadline)).To(BeNumerically("<=", 50*time.Millisecond))
		})

		It("maps a missing discussion to the service sentinel", func() {
			eng.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				return nil, store.ErrNotFound
			}

			_, err := svc.Advance(context.Background(), 42, "hello", "Alice")
			Expect(err).To(MatchError(service.ErrDiscussionNotFound))
		})

		It("lets engine sentinels pass through for the handler to map", func() {
			eng.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				return nil, engine.ErrDiscussionCompleted
			}

			_, err := svc.Advance(context.Background(), 42, "hello", "Alice")
			Expect(err).To(MatchError(engine.ErrDiscussionCompleted))
		})
	})
})
