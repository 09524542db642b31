package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/storylore/chronicle/pkg/llm"
)

func TestLLM(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LLM Suite")
}

var _ = Describe("StripReasoning", func() {
	It("removes think blocks and trims", func() {
		input := "<think>hmm, the scene has a duel</think>\n[{\"summary\": \"a duel\"}]"
		Expect(llm.StripReasoning(input)).To(Equal(`[{"summary": "a duel"}]`))
	})

	It("handles thinking and reasoning tag variants", func() {
		Expect(llm.StripReasoning("<thinking>a</thinking>x")).To(Equal("x"))
		Expect(llm.StripReasoning("<reasoning>b\nmultiline</reasoning>y")).To(Equal("y"))
	})

	It("leaves untagged content untouched", func() {
		Expect(llm.StripReasoning("  plain output  ")).To(Equal("plain output"))
	})
})

var _ = Describe("HasCredentials", func() {
	It("accepts an explicit key", func() {
		Expect(llm.HasCredentials(llm.Config{Provider: "openai", APIKey: "sk-x"})).To(BeTrue())
	})

	It("never requires a key for ollama", func() {
		Expect(llm.HasCredentials(llm.Config{Provider: "ollama"})).To(BeTrue())
	})

	It("resolves provider keys from the environment", func() {
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
		Expect(llm.HasCredentials(llm.Config{Provider: "anthropic"})).To(BeFalse())

		GinkgoT().Setenv("ANTHROPIC_API_KEY", "sk-ant-x")
		Expect(llm.HasCredentials(llm.Config{Provider: "anthropic"})).To(BeTrue())
	})
})

var _ = Describe("NewCaller", func() {
	It("rejects unknown providers", func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "sk-x")
		_, err := llm.NewCaller(llm.Config{Provider: "bard", APIKey: "x"})
		Expect(err).To(HaveOccurred())
	})

	Describe("openai caller", func() {
		It("sends the chat payload and returns the first choice", func() {
			var gotAuth string
			var gotBody map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
				Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"choices": [{"message": {"content": "[]"}}]}`))
			}))
			defer server.Close()

			caller, err := llm.NewCaller(llm.Config{
				Provider: "openai",
				APIKey:   "sk-test",
				Model:    "gpt-4o-mini",
				BaseURL:  server.URL,
			})
			Expect(err).NotTo(HaveOccurred())

			out, err := caller(context.Background(), llm.Request{
				System: "be terse",
				Prompt: "extract",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("[]"))

			Expect(gotAuth).To(Equal("Bearer sk-test"))
			Expect(gotBody["model"]).To(Equal("gpt-4o-mini"))
		})

		It("surfaces non-200 responses as errors", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			}))
			defer server.Close()

			caller, err := llm.NewCaller(llm.Config{
				Provider: "openai",
				APIKey:   "sk-test",
				BaseURL:  server.URL,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = caller(context.Background(), llm.Request{Prompt: "extract"})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("429"))
		})
	})

	Describe("anthropic caller", func() {
		It("sends the messages payload with version headers", func() {
			var gotKey, gotVersion string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotKey = r.Header.Get("x-api-key")
				gotVersion = r.Header.Get("anthropic-version")
				Expect(r.URL.Path).To(Equal("/v1/messages"))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"content": [{"type": "text", "text": "[]"}]}`))
			}))
			defer server.Close()

			caller, err := llm.NewCaller(llm.Config{
				Provider: "anthropic",
				APIKey:   "sk-ant-test",
				BaseURL:  server.URL,
			})
			Expect(err).NotTo(HaveOccurred())

			out, err := caller(context.Background(), llm.Request{Prompt: "extract"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("[]"))

			Expect(gotKey).To(Equal("sk-ant-test"))
			Expect(gotVersion).To(Equal("2023-06-01"))
		})
	})

	Describe("ollama caller", func() {
		It("requests JSON-formatted chat output", func() {
			var gotBody map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/chat"))
				Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"message": {"content": "[]"}, "done": true}`))
			}))
			defer server.Close()

			caller, err := llm.NewCaller(llm.Config{
				Provider: "ollama",
				BaseURL:  server.URL,
			})
			Expect(err).NotTo(HaveOccurred())

			out, err := caller(context.Background(), llm.Request{Prompt: "extract"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("[]"))

			Expect(gotBody["format"]).To(Equal("json"))
			Expect(gotBody["stream"]).To(Equal(false))
		})
	})
})
