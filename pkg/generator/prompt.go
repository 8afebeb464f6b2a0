package generator

import (
	"fmt"
	"strings"
)

// UnknownAnswer is the exact reply the model is told to give when the
// context does not contain the answer.
const UnknownAnswer = "I don't know"

const emptyContext = "(no relevant context was found)"

const groundedInstruction = "You are a factual assistant. Answer ONLY from the CONTEXT provided. " +
	"If the information is not in the context, reply exactly: \"" + UnknownAnswer + "\". " +
	"Cite your sources at the end of each sentence in the form [source:chunk_id]."

const ungroundedInstruction = "You are an assistant without access to any external documents. " +
	"Answer the following question as well as you can, even if you do not have all the information."

// GroundedPrompt composes the retrieval-augmented prompt. The fallback
// instruction is always present; an empty context is rendered as an
// explicit placeholder so the model sees there is nothing to cite.
func GroundedPrompt(question, contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		contextText = emptyContext
	}
	return fmt.Sprintf("SYSTEM:\n%s\n\nCONTEXT:\n%s\n\nUSER:\nQuestion: %s\n\nASSISTANT:\nGive a 5 to 10 line answer with citations.",
		groundedInstruction, contextText, question)
}

// UngroundedPrompt asks the question with no retrieved context.
func UngroundedPrompt(question string) string {
	return fmt.Sprintf("%s\n\nQuestion: %s\n\nAnswer:", ungroundedInstruction, question)
}
