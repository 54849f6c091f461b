package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/syntra/backend/internal/model/persona"
)

// BuildSystemPrompt renders the system instruction for a persona.
func BuildSystemPrompt(p persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %q, %s. %s.\n", p.Name, p.Identity, capitalize(p.Title))

	if len(p.Expertise) > 0 {
		b.WriteString("\nExpertise:\n")
		for _, item := range p.Expertise {
			b.WriteString("- ")
			b.WriteString(item)
			b.WriteString("\n")
		}
	}

	if p.Tone != "" {
		fmt.Fprintf(&b, "\nTone: %s.\n", p.Tone)
	}

	if len(p.Rules) > 0 {
		b.WriteString("\nRules:\n")
		for i, rule := range p.Rules {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
		}
	}

	if p.SmallTalk != "" {
		b.WriteString("\n")
		b.WriteString(p.SmallTalk)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
