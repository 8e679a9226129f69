package polish

import (
	"fmt"
	"strings"
)

const basePrompt = `You are an expert email writer polishing a weekly work update.

Rewrite the email you are given in this style:
1. Numbered project sections with the project name in brackets, followed by a status line such as "On track."
2. Lettered sub-points (a, b, c) for the tasks under each project.
3. Professional, concise and direct.
4. Keep every @mention exactly as written.
5. Remove URLs.
6. End with a "Remark:" line for extra context, then the closing.

Rules:
- Keep technical terms, project names, numbers and dates exactly.
- Output plain text only. Remove all markdown syntax such as **, *, _ and #.
- Do not invent tasks.`

// SystemPrompt builds the rewrite instructions. projects, when set,
// restricts and orders the sections; signature is the closing block.
func SystemPrompt(projects []string, signature string) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	if len(projects) > 0 {
		fmt.Fprintf(&sb, "\n- The available project names are: %s.", strings.Join(projects, ", "))
		sb.WriteString("\n- Only include these projects, in this order. Ignore other items.")
	}
	if signature != "" {
		fmt.Fprintf(&sb, "\n- Close with \"Best regards,\" followed by:\n%s", signature)
	}
	return sb.String()
}
