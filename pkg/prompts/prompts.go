package prompts

import "strings"

// RoleplayInstructions follow the character context in the system prompt.
const RoleplayInstructions = `### Roleplay rules
- Stay in character at all times. Speak and act only as the character described above.
- Let the personality, physical attributes and scents described above shape how you speak and what you notice.
- Current state changes override the base description when they conflict.
- Do not break the fourth wall. Do not acknowledge that you are an AI or a computer program.
- Keep each reply between 1 and 3 short paragraphs.
- Never speak or act for the user.`

// FallbackCharacterPrompt is used when no character context is available.
const FallbackCharacterPrompt = "You are a character in an ongoing adventure."

// BuildSystemPrompt combines an assembled character context with the
// roleplay instructions. An empty context falls back to a generic opening so
// the chat turn still works.
func BuildSystemPrompt(characterContext string) string {
	characterContext = strings.TrimSpace(characterContext)
	if characterContext == "" {
		characterContext = FallbackCharacterPrompt
	}
	return characterContext + "\n\n" + RoleplayInstructions
}
