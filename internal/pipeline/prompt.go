package pipeline

import (
	"fmt"
	"strings"

	"github.com/docanchor/docanchor/internal/llm"
	"github.com/docanchor/docanchor/internal/model"
)

// systemInstruction enforces strict grounding and citation behavior.
const systemInstruction = "You are an academic question-answering system.\n" +
	"You must not use prior knowledge or make assumptions.\n" +
	"All answers must be fully grounded in the provided evidence.\n" +
	"If a claim cannot be supported with a citation, it must not be written."

// PromptBuilder constructs citation-aware, evidence-constrained
// prompts. Evidence blocks are labeled [E1], [E2], ... in evidence
// order — the same 1-indexed convention the citation extractor
// validates against.
type PromptBuilder struct {
	// MaxEvidence bounds how many chunks are placed in the prompt.
	MaxEvidence int
}

func NewPromptBuilder(maxEvidence int) *PromptBuilder {
	if maxEvidence <= 0 {
		maxEvidence = 5
	}
	return &PromptBuilder{MaxEvidence: maxEvidence}
}

func (b *PromptBuilder) Build(question string, evidence []model.Evidence) llm.Prompt {
	if len(evidence) > b.MaxEvidence {
		evidence = evidence[:b.MaxEvidence]
	}

	var blocks []string
	for i, e := range evidence {
		blocks = append(blocks, fmt.Sprintf("[E%d | doc:%s | pages:%d-%d]\n%s",
			i+1, e.DocID, e.PageStart, e.PageEnd, e.Text))
	}

	user := fmt.Sprintf(`You are provided with evidence excerpts from academic documents.

Evidence:
%s

Question:
%s

Instructions:
- Answer using ONLY the evidence above.
- Every factual sentence MUST end with one or more citations in the form [E1], [E2], etc.
- Use only citation identifiers that appear in the evidence.
- Do NOT combine multiple claims in one sentence unless all are cited.
- If the evidence is insufficient, respond exactly with:
  %q`, strings.Join(blocks, "\n\n"), question, refusalCannotAnswer)

	return llm.Prompt{System: systemInstruction, User: user}
}
