package assistant

import (
	"fmt"
	"strings"
)

// leavePolicy is the standing policy context given to the model with
// every question.
const leavePolicy = `Leave policy:
- Casual Leave (CL): 12 days per calendar year, accrued monthly. Up to 3 consecutive days without manager pre-approval.
- Sick Leave (SL): 6 days per calendar year. A medical certificate is required for more than 2 consecutive days.
- Earned Leave (EL): 15 days per calendar year, accrued monthly after confirmation. Unused EL carries over up to 30 days.
- Leave applications go through GreytHR. Applying at least 3 working days in advance is expected for planned leave.
- Unused CL and SL lapse at year end. EL beyond the carry-over cap lapses.
- Leave without pay applies once balances are exhausted.`

// systemInstructions frame how the bot answers.
const systemInstructions = `You are an HR assistant bot answering employee questions about leave.
Answer briefly and concretely, using the employee's leave data when it is provided.
Format the answer for Slack: plain sentences, *bold* for emphasis, bullet lines with "•".
If the question is not about leave or HR policy, say you can only help with leave questions.
Never invent balances or dates that are not in the provided data.`

// Question is one employee question with its conversational context.
type Question struct {
	UserName    string
	UserEmail   string
	ChannelType string
	History     []string
	Text        string
}

// BuildPrompt assembles the full model prompt for a question. leaveInfo
// is the employee's formatted leave data, empty when unavailable.
func BuildPrompt(q Question, leaveInfo string) string {
	var b strings.Builder

	b.WriteString(systemInstructions)
	b.WriteString("\n\n")
	b.WriteString(leavePolicy)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "The question comes from %s", q.UserName)
	if q.ChannelType == "im" {
		b.WriteString(" in a direct message.\n")
	} else {
		b.WriteString(" in a channel; other people will read the answer.\n")
	}

	if leaveInfo != "" {
		b.WriteString("\nEmployee leave data:\n")
		b.WriteString(leaveInfo)
		b.WriteString("\n")
	} else {
		b.WriteString("\nNo leave records were found for this employee. Answer from policy only and say their records are unavailable.\n")
	}

	if len(q.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, line := range q.History {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(q.Text)
	return b.String()
}
