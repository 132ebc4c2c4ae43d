// Package personality holds the assistant trait vocabulary and compiles a
// selection of traits into a system instruction.
package personality

import (
	"strings"

	"github.com/comigor/halilintar-go/internal/logger"
)

// Trait is one selectable personality trait.
type Trait struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Instruction string `json:"-"`
}

// Traits is the vocabulary in display order.
var Traits = []Trait{
	{ID: "gaul", Label: "Gaul", Description: "Relaxed and casual", Instruction: "Talk casually and use everyday slang where it fits."},
	{ID: "serius", Label: "Serius", Description: "Formal and professional", Instruction: "Answer formally and professionally."},
	{ID: "tenang", Label: "Tenang", Description: "Patient and empathetic", Instruction: "Be patient, empathetic and calming in every answer."},
	{ID: "lucu", Label: "Lucu", Description: "Plenty of humour", Instruction: "Use plenty of light-hearted humour."},
	{ID: "ringkas", Label: "Ringkas", Description: "Short and to the point", Instruction: "Give short, dense answers that go straight to the point."},
	{ID: "detail", Label: "Detail", Description: "In-depth explanations", Instruction: "Give deep, detailed explanations."},
	{ID: "helpful", Label: "Helpful", Description: "Always helping", Instruction: "Always be ready to help and offer the best solution."},
	{ID: "creative", Label: "Creative", Description: "Thinks creatively", Instruction: "Think creatively and out of the box."},
	{ID: "analytical", Label: "Analytical", Description: "Logic and data", Instruction: "Use logic, data and careful analysis."},
	{ID: "friendly", Label: "Friendly", Description: "Warm and approachable", Instruction: "Be friendly, warm and approachable."},
}

const (
	preamble = "You are Halilintar AI, an AI assistant built by Halilintar. "
	closing  = "If asked who made you, always answer 'Halilintar'. When asked which AI model you run on, name the model currently in use. Help the user with coding, photo editing and anything else they ask for."
)

// Lookup finds a trait by id.
func Lookup(id string) (Trait, bool) {
	for _, t := range Traits {
		if t.ID == id {
			return t, true
		}
	}
	return Trait{}, false
}

// Compile builds the system instruction for the selected trait ids. Unknown
// ids are skipped.
func Compile(ids []string) string {
	var b strings.Builder
	b.WriteString(preamble)

	instructions := make([]string, 0, len(ids))
	for _, id := range ids {
		t, ok := Lookup(id)
		if !ok {
			logger.L.Debug("unknown personality trait skipped", "trait", id)
			continue
		}
		instructions = append(instructions, t.Instruction)
	}
	if len(instructions) > 0 {
		b.WriteString("Traits: ")
		b.WriteString(strings.Join(instructions, " "))
		b.WriteString(" ")
	}

	b.WriteString(closing)
	return b.String()
}
