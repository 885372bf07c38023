package core

import (
	"fmt"
	"strings"
)

const promptPreamble = "You are an expert on the car models described below. Your answers should be " +
	"very short. Use the following information to answer questions about specific " +
	"models. Only respond to questions related to the cars' specifications or " +
	"features. If the question is unrelated, say \"I can only answer questions " +
	"about car specifications.\" NEVER EVER ANSWER UNRELATED QUESTIONS. In your " +
	"answers, if the model is not specified, assume it's the selected model."

// BuildPrompt assembles the bounded instruction for one follow-up question:
// answers are restricted to the spec sheet and pinned to the selected model
// unless the question names another. Pure string assembly, testable without
// a backend.
func BuildPrompt(model, specSheet, question string) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\nCar Specifications:\n")
	b.WriteString(strings.TrimSpace(specSheet))
	fmt.Fprintf(&b, "\n\nSelected car model: %s\n\nUser Question: %s", model, strings.TrimSpace(question))
	return b.String()
}
