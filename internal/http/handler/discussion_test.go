package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/http/handler"
	"wealthos.app/roundtable/internal/model"
	"wealthos.app/roundtable/internal/service"
)

var _ = Describe("DiscussionHandler", func() {
	var (
		router  *gin.Engine
		svc     *mockDiscussionService
		planner *mockPlannerService
	)

	snapshot := func() *engine.Result {
		return &engine.Result{
			Discussion: &model.Discussion{
				ID:        42,
				OrgID:     7,
				Name:      "succession planning",
				Status:    model.DiscussionStatusActive,
				CreatedAt: time.Now(),
			},
			Turns: []model.Turn{
				{ID: 1, Seat: 3, SpeakerName: "Alice", Role: model.RoleUser, TurnIndex: 0, Round: 1, Kind: model.TurnKindRegular, Content: "kickoff"},
				{ID: 2, Seat: 0, SpeakerName: "Moderator", Role: model.RoleManager, TurnIndex: 1, Round: 1, Kind: model.TurnKindRegular, Content: "opening"},
			},
			SpeechCounts: map[int]int{0: 1, 3: 1},
			SpeakerOrder: []model.Participant{
				{Seat: 0, Role: model.RoleManager},
				{Seat: 3, Role: model.RoleUser},
			},
			NextSpeaker: &model.Participant{Seat: 3, Role: model.RoleUser},
		}
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockDiscussionService{}
		planner = &mockPlannerService{}
		h := handler.NewDiscussionHandler(svc, planner)

		router.POST("/discussions", h.Create)
		router.POST("/discussions/plan", h.Plan)
		router.GET("/discussions/:id", h.Get)
		router.POST("/discussions/:id/advance", h.Advance)
	})

	Describe("Get", func() {
		It("returns the snapshot", func() {
			svc.getFn = func(ctx context.Context, discussionID int64) (*engine.Result, error) {
				Expect(discussionID).To(Equal(int64(42)))
				return snapshot(), nil
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discussions/42", nil))

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["turns"]).To(HaveLen(2))
			Expect(resp["next_speaker"]).NotTo(BeNil())
		})

		It("returns 404 for an unknown discussion", func() {
			svc.getFn = func(ctx context.Context, discussionID int64) (*engine.Result, error) {
				return nil, service.ErrDiscussionNotFound
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discussions/42", nil))

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed id", func() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discussions/abc", nil))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Advance", func() {
		post := func(body map[string]any) *httptest.ResponseRecorder {
			raw, _ := json.Marshal(body)
			req := httptest.NewRequest(http.MethodPost, "/discussions/42/advance", bytes.NewBuffer(raw))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w
		}

		It("passes the message through and returns the snapshot", func() {
			svc.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				Expect(message).To(Equal("What about trusts?"))
				Expect(actorName).To(Equal("Alice"))
				return snapshot(), nil
			}

			w := post(map[string]any{"message": "What about trusts?", "actor_name": "Alice"})
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 409 with a retry hint when an advance is in flight", func() {
			svc.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				return nil, service.ErrAdvanceInFlight
			}

			w := post(map[string]any{"message": "hello"})
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Header().Get("Retry-After")).NotTo(BeEmpty())
		})

		It("returns 400 for a completed discussion", func() {
			svc.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				return nil, engine.ErrDiscussionCompleted
			}

			w := post(map[string]any{"message": "hello"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when the user quota is spent", func() {
			svc.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				return nil, engine.ErrUserQuotaExhausted
			}

			w := post(map[string]any{"message": "hello"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown discussion", func() {
			svc.advanceFn = func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
				return nil, service.ErrDiscussionNotFound
			}

			w := post(map[string]any{"message": "hello"})
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Create", func() {
		It("returns 201 with the new discussion", func() {
			svc.createFn = func(ctx context.Context, input service.CreateDiscussionInput) (*model.Discussion, error) {
				Expect(input.Seats).To(HaveLen(3))
				return &model.Discussion{ID: 99, OrgID: input.OrgID, Name: input.Name, Status: model.DiscussionStatusActive, CreatedAt: time.Now()}, nil
			}

			body, _ := json.Marshal(map[string]any{
				"org_id": 7,
				"name":   "succession planning",
				"seats": []map[string]any{
					{"role": "manager", "persona_id": 10},
					{"role": "expert", "persona_id": 11},
					{"role": "user"},
				},
			})
			req := httptest.NewRequest(http.MethodPost, "/discussions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))
		})

		It("returns 400 on a roster validation error", func() {
			svc.createFn = func(ctx context.Context, input service.CreateDiscussionInput) (*model.Discussion, error) {
				return nil, service.ErrNoManagerSeat
			}

			body, _ := json.Marshal(map[string]any{
				"org_id": 7,
				"name":   "x",
				"seats":  []map[string]any{{"role": "expert", "persona_id": 11}},
			})
			req := httptest.NewRequest(http.MethodPost, "/discussions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when seats are missing", func() {
			body, _ := json.Marshal(map[string]any{"org_id": 7, "name": "x"})
			req := httptest.NewRequest(http.MethodPost, "/discussions", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Plan", func() {
		It("returns the proposed roster", func() {
			planner.planFn = func(ctx context.Context, topic string) (*service.RosterPlan, error) {
				return &service.RosterPlan{
					Title: "Cross-border inheritance",
					Experts: []service.PlannedSeat{
						{Name: "Dr. Keller", Specialty: "cross-border inheritance tax"},
					},
				}, nil
			}

			body, _ := json.Marshal(map[string]any{"topic": "cross-border inheritance"})
			req := httptest.NewRequest(http.MethodPost, "/discussions/plan", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["experts"]).To(HaveLen(1))
		})

		It("returns 400 without a topic", func() {
			req := httptest.NewRequest(http.MethodPost, "/discussions/plan", bytes.NewBufferString("{}"))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
