package chat

import (
	"strings"

	"menu-qa/internal/retrieval"
	"menu-qa/internal/shared"
)

// buildMessages renders the system prompt with the grounding context and the
// intent hint, followed by the trimmed history and the question.
func (h *ChatHandler) buildMessages(req *RequestInfo, intent retrieval.Intent, context string) []shared.ChatMessage {
	p := h.cfg.Prompt

	var sys strings.Builder
	sys.WriteString(systemPrompt(p.System, p.RestaurantName))
	if hint := p.CategoryHints[req.Category]; hint != "" {
		sys.WriteString("\n")
		sys.WriteString(hint)
	}
	if intent.Instruction != "" {
		sys.WriteString("\n")
		sys.WriteString(intent.Instruction)
	}
	sys.WriteString("\n\nCONTEXT:\n")
	sys.WriteString(context)

	msgs := make([]shared.ChatMessage, 0, len(req.History)+2)
	msgs = append(msgs, shared.ChatMessage{Role: shared.RoleSystem, Content: sys.String()})
	for _, t := range req.History {
		msgs = append(msgs, shared.ChatMessage{Role: t.Role, Content: t.Text})
	}
	msgs = append(msgs, shared.ChatMessage{Role: shared.RoleUser, Content: req.Question})
	return msgs
}

func systemPrompt(tmpl, restaurant string) string {
	return strings.Replace(tmpl, "%s", restaurant, 1)
}
