package refs

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// llmSystemPrompt constrains the model to a semicolon-delimited
// type;number;date output, one document per line.
const llmSystemPrompt = `You are a smart assistant that analyzes user requests carefully and answers in Russian.
Найди в тексте все нормативные документы (ГОСТ, Приказ, Постановление и т.д.).
Для каждого выведи в формате: Тип документа; Номер; Дата.
Отвечай построчно, каждую запись на новой строке, поля разделяй точкой с запятой ';'.
Если дата отсутствует, оставь поле пустым.
Пример:
ГОСТ; 1234-56; 01.01.2000
Приказ; 12; 05.05.2022`

// extractWithLLM sends the text to a language model and parses its
// constrained output. Lines that fail to parse into at least two fields are
// discarded.
func (e *Extractor) extractWithLLM(ctx context.Context, text string) ([]Reference, error) {
	client := openai.NewClient(e.opts.LLMAPIKey)

	if runes := []rune(text); len(runes) > e.opts.MaxTextForLLM {
		text = string(runes[:e.opts.MaxTextForLLM])
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.opts.LLMModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return parseLLMOutput(resp.Choices[0].Message.Content), nil
}

// parseLLMOutput converts semicolon-delimited lines into references.
func parseLLMOutput(content string) []Reference {
	var refs []Reference

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ";")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 2 {
			continue
		}

		ref := Reference{
			Raw:    line,
			Type:   parts[0],
			Number: parts[1],
		}
		if len(parts) >= 3 {
			ref.Date = parts[2]
		}
		refs = append(refs, ref)
	}

	return refs
}
