package models

const (
	ThinkTag         = `(?s)<think>.*?</think>`
	ContextSeparator = "\n\n"

	UnsupportedFileMessage = "Not supported file type."
	RefusalMessage         = "I cannot determine the answer from the given information. Additional resources may help."
)

var (
	// ContextualizePrompt turns a follow-up question into a standalone one.
	ContextualizePrompt = `Given the chat history and the latest user question, which might reference context in the chat history, create a standalone question that can be understood without the chat history. Do NOT answer the question, just reformulate it if needed and otherwise return it as is.`

	AnswerPromptTemplate = `You are a knowledgeable and precise assistant tasked with answering queries based only on the provided context. Adhere to the following rules:

1. Use the supplied context as the exclusive source for your answers. Do not rely on outside knowledge or make assumptions.
2. If the context does not provide enough information to answer the question, respond explicitly with:
"` + RefusalMessage + `"
3. When the answer is clear from the context, deliver a concise and focused response, limited to five sentences maximum.

Provided Context:
{{.context}}
`
)
