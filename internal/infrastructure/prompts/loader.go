package prompts

import (
	_ "embed"
)

//go:embed decision.txt
var DecisionPrompt string

//go:embed step.txt
var StepTemplate string
