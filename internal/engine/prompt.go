package engine

import "fmt"

// DefaultSystemPrompt instructs the model to answer as an admission
// assistant, in Russian, strictly from the supplied context.
const DefaultSystemPrompt = "Ты помощник абитуриента ИТМО. Отвечай точно, кратко и только на основе предоставленной информации. " +
	"Отвечай на русском языке. Не добавляй фразы вроде 'Question:' или 'Helpful Answer:'."

// BuildPrompt wraps a system instruction and user content into the Saiga2
// chat template. Pure string substitution: identical inputs yield a
// byte-identical prompt.
func BuildPrompt(system, user string) string {
	return fmt.Sprintf("<|system|>%s</|system|>\n<|user|>%s</|user|>\n<|assistant|>", system, user)
}
