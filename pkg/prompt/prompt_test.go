package prompt_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/prompt"
	"github.com/storylore/chronicle/pkg/session"
)

func TestPrompt(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Prompt Suite")
}

var _ = Describe("FormatTurns", func() {
	It("renders name-prefixed lines and skips system turns", func() {
		turns := []session.Turn{
			{ID: 1, Name: "Elara", Text: "The cellar door is open."},
			{ID: 2, IsSystem: true, Name: "system", Text: "[scene change]"},
			{ID: 3, IsUser: true, Name: "Dana", Text: "I go down the stairs."},
		}

		Expect(prompt.FormatTurns(turns)).To(Equal(
			"Elara: The cellar door is open.\nDana: I go down the stairs.\n"))
	})
})

var _ = Describe("Build", func() {
	base := prompt.Params{
		TurnText:      "Elara: hello\n",
		CharacterName: "Elara",
		UserName:      "Dana",
	}

	It("asks for the JSON event schema and ends with the conversation", func() {
		built := prompt.Build(base)
		Expect(built).To(ContainSubstring("valid JSON array"))
		Expect(built).To(ContainSubstring(`"event_type"`))
		Expect(built).To(ContainSubstring("Return an empty array if nothing significant happened."))
		Expect(built).To(HaveSuffix("Conversation:\nElara: hello\n"))
	})

	It("omits the canonical_date field unless date tracking is on", func() {
		Expect(prompt.Build(base)).NotTo(ContainSubstring("canonical_date"))

		p := base
		p.Settings.CanonicalDateTracking = true
		Expect(prompt.Build(p)).To(ContainSubstring("canonical_date"))
	})

	It("lists known characters including the name list, deduplicated", func() {
		p := base
		p.Settings.NameList = []string{"Bram", "dana", "  "}

		Expect(prompt.Build(p)).To(ContainSubstring("Known characters: Elara, Dana, Bram\n"))
	})

	It("drops the primary character for scenario cards", func() {
		p := base
		p.CharacterName = "Narrator"
		p.Settings.CardType = session.CardTypeScenario

		Expect(prompt.Build(p)).To(ContainSubstring("Known characters: Dana\n"))
	})

	It("includes prior memories as a do-not-repeat list", func() {
		p := base
		p.PriorMemories = []string{"Elara found the forged letter"}

		built := prompt.Build(p)
		Expect(built).To(ContainSubstring("do not repeat these"))
		Expect(built).To(ContainSubstring("- Elara found the forged letter\n"))
	})

	It("includes non-empty character descriptions", func() {
		p := base
		p.CharacterDescriptions = []string{"Elara is a wary ranger.", "   "}

		built := prompt.Build(p)
		Expect(built).To(ContainSubstring("Character description:\nElara is a wary ranger."))
	})
})
