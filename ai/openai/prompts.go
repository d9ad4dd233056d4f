package openai

import "fmt"

const taggingResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "tags": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "tag": {
            "type": "string",
            "pattern": "^[a-z0-9]+( [a-z0-9]+)*$"
          },
          "relevance": {
            "type": "integer",
            "minimum": 1,
            "maximum": 10
          }
        },
        "required": ["tag", "relevance"],
        "additionalProperties": false
      }
    }
  },
  "required": ["tags"],
  "additionalProperties": false
}`

const taggingPromptTemplate = `Extract the main topics of the given transcript text and return them as JSON tags.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Tag names must be lowercase, 1-3 words.
- Return at most %d tags.
- Relevance is an integer from 1 (barely mentioned) to 10 (central topic). Rate based on how much of the text is about the topic.
- Include only topics that are explicitly discussed in the text. Do not hallucinate.
- Prefer specific topics over generic ones ("machine learning" over "technology").
- If no topics can be identified, return "tags": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.



Example (lecture transcript):
Input: "Today we will look at how neural networks learn. Backpropagation computes the gradient of the loss."
Output:
{
  "tags": [
    {"tag":"neural networks","relevance":9},
    {"tag":"backpropagation","relevance":8}
  ]
}

Example (meeting transcript, informal):
Input: "ok so the q3 budget is basically done, marketing wants more for the launch"
Output:
{
  "tags": [
    {"tag":"q3 budget","relevance":9},
    {"tag":"product launch","relevance":6}
  ]
}

Example (nothing to tag):
Input: "uh yeah ok sure"
Output:
{
  "tags": []
}`

// buildTaggingPrompt creates the system prompt with the tag limit embedded.
func buildTaggingPrompt(maxTags int) string {
	return fmt.Sprintf(taggingPromptTemplate, taggingResponseSchema, maxTags)
}
