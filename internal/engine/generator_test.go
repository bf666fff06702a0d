package engine_test

import (
	"context"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/model"
)

var _ = Describe("Generator", func() {
	var (
		completer *stubCompleter
		gen       engine.Generator
		persona   *model.Persona
	)

	BeforeEach(func() {
		completer = &stubCompleter{reply: "A single considered point."}
		gen = engine.NewGenerator(&stubResolver{completer: completer})
		persona = personaFixture(1, "Tax Strategist")
	})

	It("returns the normalized completion", func() {
		completer.reply = "  first line  \n\n second line \nthird line\nfourth line"

		content, err := gen.Generate(context.Background(), engine.ContributionRequest{Persona: persona})
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal("first line\nsecond line\nthird line"))
	})

	It("substitutes the fallback when the backend fails", func() {
		completer.err = errBackendDown

		content, err := gen.Generate(context.Background(), engine.ContributionRequest{Persona: persona})
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal(engine.FallbackContent))
	})

	It("propagates context cancellation instead of falling back", func() {
		completer.err = context.Canceled
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := gen.Generate(ctx, engine.ContributionRequest{Persona: persona})
		Expect(err).To(MatchError(context.Canceled))
	})

	It("propagates a missing backend as a hard error", func() {
		gen = engine.NewGenerator(&stubResolver{err: engine.ErrNoBackend})

		_, err := gen.Generate(context.Background(), engine.ContributionRequest{Persona: persona})
		Expect(err).To(MatchError(engine.ErrNoBackend))
	})

	Describe("instruction assembly", func() {
		It("includes the persona prompt, rules, roster and line constraint", func() {
			_, err := gen.Generate(context.Background(), engine.ContributionRequest{
				Persona: persona,
				Rules:   []string{"stay on topic", "cite figures"},
				Roster:  []string{"Moderator", "Tax Strategist", "user"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.requests).To(HaveLen(1))

			sys := completer.requests[0].SystemPrompt
			Expect(sys).To(ContainSubstring(persona.SystemPrompt))
			Expect(sys).To(ContainSubstring("- stay on topic"))
			Expect(sys).To(ContainSubstring("- cite figures"))
			Expect(sys).To(ContainSubstring("Speaker order: Moderator, Tax Strategist, user"))
			Expect(sys).To(ContainSubstring(fmt.Sprintf("at most %d non-empty lines", engine.MaxTurnLines)))
			Expect(sys).NotTo(ContainSubstring("closing synthesis"))
		})

		It("adds the synthesis override for summary turns", func() {
			_, err := gen.Generate(context.Background(), engine.ContributionRequest{
				Persona: persona,
				Summary: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.requests[0].SystemPrompt).To(ContainSubstring("closing synthesis"))
		})
	})

	Describe("history rendering", func() {
		turn := func(speaker, content string) model.Turn {
			return model.Turn{SpeakerName: speaker, Content: content}
		}

		It("serializes turns as speaker-prefixed lines", func() {
			_, err := gen.Generate(context.Background(), engine.ContributionRequest{
				Persona: persona,
				History: []model.Turn{turn("Moderator", "Welcome."), turn("user", "Let us begin.")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.requests[0].Messages).To(HaveLen(1))
			Expect(completer.requests[0].Messages[0].Content).To(Equal("Moderator: Welcome.\nuser: Let us begin."))
		})

		It("keeps only the trailing window", func() {
			history := make([]model.Turn, 0, 12)
			for i := 0; i < 12; i++ {
				history = append(history, turn("Moderator", fmt.Sprintf("point %d", i)))
			}

			_, err := gen.Generate(context.Background(), engine.ContributionRequest{
				Persona: persona,
				History: history,
				Window:  10,
			})
			Expect(err).NotTo(HaveOccurred())

			rendered := completer.requests[0].Messages[0].Content
			Expect(strings.Count(rendered, "\n")).To(Equal(9))
			Expect(rendered).NotTo(ContainSubstring("point 0"))
			Expect(rendered).NotTo(ContainSubstring("point 1\n"))
			Expect(rendered).To(ContainSubstring("point 2"))
			Expect(rendered).To(ContainSubstring("point 11"))
		})

		It("marks an empty transcript explicitly", func() {
			_, err := gen.Generate(context.Background(), engine.ContributionRequest{Persona: persona})
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.requests[0].Messages[0].Content).To(Equal("(the discussion has not started yet)"))
		})
	})

	It("passes the persona tuning through to the completer", func() {
		temp := 0.4
		persona.Temperature = &temp
		persona.StopSequences = []string{"END"}
		persona.MaxTokens = 128

		_, err := gen.Generate(context.Background(), engine.ContributionRequest{Persona: persona})
		Expect(err).NotTo(HaveOccurred())

		req := completer.requests[0]
		Expect(req.MaxTokens).To(Equal(128))
		Expect(*req.Temperature).To(Equal(0.4))
		Expect(req.StopSequences).To(Equal([]string{"END"}))
	})
})
