package assistant

import "github.com/kailas-cloud/ragchat/internal/domain/prompt"

// Prompts are the tenant-configurable templates of the chat pipeline.
type Prompts struct {
	Standalone prompt.Template
	Answer     prompt.Template
	FollowUp   prompt.Template
}

// Assistant is a tenant profile resolved from the assistant directory.
type Assistant struct {
	Token   string
	Name    string
	Active  bool
	Prompts Prompts
}

// Default templates used when the directory leaves a prompt empty.
const (
	DefaultStandalonePrompt prompt.Template = `Given the following conversation and a follow up question, ` +
		`rephrase the follow up question to be a standalone question, in its original language.

Chat History:
{chat_history}
Follow Up Input: {question}
Standalone question:`

	DefaultAnswerPrompt prompt.Template = `You are a helpful assistant. Answer the user's question ` +
		`using only the context below. If the context does not contain the answer, say that you do not know.

Context:
{context}`

	DefaultFollowUpPrompt prompt.Template = `Suggest short follow-up questions the user is likely to ask next. ` +
		`Base them on the conversation, the current question and the context.

Conversation:
{chat_history}

Current question: {current_question}

Context:
{context}

{format_instructions}`
)

// WithDefaults returns a copy with empty prompts replaced by the built-in defaults.
func (a Assistant) WithDefaults() Assistant {
	if a.Prompts.Standalone == "" {
		a.Prompts.Standalone = DefaultStandalonePrompt
	}
	if a.Prompts.Answer == "" {
		a.Prompts.Answer = DefaultAnswerPrompt
	}
	if a.Prompts.FollowUp == "" {
		a.Prompts.FollowUp = DefaultFollowUpPrompt
	}
	return a
}
