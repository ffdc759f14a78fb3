package ai

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed prompts/task.txt
var taskPrompt string

//go:embed prompts/instructions.txt
var instructionsPrompt string

const (
	targetCaption    = "Target Image (Student attempting to mark attendance):"
	referencesHeader = "Reference Images (Registered Students Database):"
	emptyRosterNote  = "Note: No registered students are currently in the database. Treat this as a generic face check."
)

// promptPart is one ordered piece of a recognition request. Exactly one of
// Text or Image is set.
type promptPart struct {
	Text  string
	Image []byte
}

// buildPromptParts returns the ordered content shared by all providers:
// task, target, references (or the empty roster note), then the decision policy.
func buildPromptParts(req *RecognitionRequest) []promptPart {
	parts := []promptPart{
		{Text: strings.TrimSpace(taskPrompt)},
		{Text: targetCaption},
		{Image: req.Target},
	}

	if req.Empty() {
		parts = append(parts, promptPart{Text: emptyRosterNote})
	} else {
		parts = append(parts, promptPart{Text: referencesHeader})
		for _, ref := range req.References {
			parts = append(parts,
				promptPart{Text: studentLabel(ref)},
				promptPart{Image: ref.Image},
			)
		}
		for _, ref := range req.Unreferenced {
			parts = append(parts, promptPart{Text: studentLabel(ref) + " (no reference image on file)"})
		}
	}

	return append(parts, promptPart{Text: buildInstructions(req.Subject)})
}

func studentLabel(ref Reference) string {
	return fmt.Sprintf("Student Name: %s (ID: %s)", ref.Name, ref.ID)
}

func buildInstructions(subject string) string {
	return strings.ReplaceAll(strings.TrimSpace(instructionsPrompt), "{subject}", subject)
}
