package tutor

import "github.com/lingualeap/lingualeap/internal/gateway"

// The six prompts below are the entire "NLP" of the service — everything
// linguistic is delegated to the model. Each prompt's schema is the contract
// the gateway enforces on the model's output.

var conversationPrompt = gateway.Prompt{
	Name: "conversation",
	Text: `You are an AI language tutor. The user's native language is {{nativeLanguage}}. They want to practice speaking {{language}} at a {{level}} level. The topic of conversation is {{topic}}. Your primary role is to engage the user in a natural, flowing conversation in {{language}}.

The user has provided the following input: {{userInput}}

Respond conversationally to the user's message in {{language}} to keep the dialogue going. Maintain the selected language level and topic. After your conversational response, ask a follow-up question in {{language}} to encourage the user to continue practicing.

IMPORTANT: Your conversational response ('tutorResponse') must be in {{language}}.`,
	Schema: gateway.MustCompileSchema(`{
		"type": "object",
		"required": ["tutorResponse"],
		"properties": {
			"tutorResponse": {"type": "string", "minLength": 1}
		}
	}`),
}

var grammarPrompt = gateway.Prompt{
	Name: "grammar",
	Text: `You are a grammar expert. Your response MUST be in the user's native language: {{nativeLanguage}}.

You will check the given text for grammar errors.

If the text is grammatically correct:
- Set isCorrect to true.
- Set correctedText to the original text.
- Set the explanation to a confirmation message in the user's native language (e.g., "Looks good! No errors found." translated to {{nativeLanguage}}).

If there are any errors:
- Set isCorrect to false.
- Provide the corrected text in the correctedText field.
- Provide a clear explanation of the grammar errors and corrections in the explanation field. This explanation must be in {{nativeLanguage}}.

Text to check: {{text}}`,
	Schema: gateway.MustCompileSchema(`{
		"type": "object",
		"required": ["isCorrect", "correctedText", "explanation"],
		"properties": {
			"isCorrect": {"type": "boolean"},
			"correctedText": {"type": "string"},
			"explanation": {"type": "string"}
		}
	}`),
}

var refinementPrompt = gateway.Prompt{
	Name: "refinement",
	Text: `You are an AI language tutor. The user is learning {{language}} at a {{level}} level.

Provide at least three alternative phrasings for the following sentence to improve its fluency and naturalness. Ensure suggestions are appropriate for the user's proficiency level. Return a JSON object of the form {"suggestions": ["..."]} containing only the suggestions. The suggestions should be in {{language}}.

Sentence: {{text}}`,
	// No minItems on purpose: the three-suggestion count is a prompt
	// instruction, and fewer suggestions must pass as a degenerate result.
	Schema: gateway.MustCompileSchema(`{
		"type": "object",
		"required": ["suggestions"],
		"properties": {
			"suggestions": {"type": "array", "items": {"type": "string"}}
		}
	}`),
}

var correctionPrompt = gateway.Prompt{
	Name: "correction",
	Text: `You are an AI that corrects sentences.

Correct the following sentence:

{{incorrectSentence}}

Return a JSON object of the form {"correctedSentence": "..."} containing only the corrected sentence, without any additional explanation or conversation. The correction should be in the original language of the sentence, not in the user's native language.`,
	Schema: gateway.MustCompileSchema(`{
		"type": "object",
		"required": ["correctedSentence"],
		"properties": {
			"correctedSentence": {"type": "string"}
		}
	}`),
}

var translationPrompt = gateway.Prompt{
	Name: "translation",
	Text: `Translate the following text into {{targetLanguage}}. Return a JSON object of the form {"translatedText": "..."} containing only the translation, preserving the tone of the original.

Text: {{text}}`,
	Schema: gateway.MustCompileSchema(`{
		"type": "object",
		"required": ["translatedText"],
		"properties": {
			"translatedText": {"type": "string"}
		}
	}`),
}

var suggestionsPrompt = gateway.Prompt{
	Name: "suggestions",
	Text: `You are an AI language tutor assistant. The user is practicing {{language}} at a {{level}} level, discussing the topic: "{{topic}}".

The tutor just said: "{{tutorResponse}}"

Provide three short, distinct, and natural-sounding replies that the user could say next. The suggestions should be appropriate for the user's {{level}} level and should be in {{language}}.

Return a JSON object of the form {"suggestions": ["..."]} containing only the suggestions.`,
	Schema: gateway.MustCompileSchema(`{
		"type": "object",
		"required": ["suggestions"],
		"properties": {
			"suggestions": {"type": "array", "items": {"type": "string"}}
		}
	}`),
}
