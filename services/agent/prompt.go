package agent

import (
	"fmt"
	"time"
)

const systemPromptTemplate = "You are TrackUp Buddy, an intelligent project management assistant. " +
	"Today's date is %s. When assigning tasks, use this date as reference. " +
	"When asked about team status, provide detailed breakdowns."

// SystemPrompt is the persona instruction dated for today.
func SystemPrompt(today time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, today.Format("2006-01-02"))
}
