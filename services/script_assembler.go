package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"quoteapi-server/models"
)

// ScriptAssembler renders stored endpoint code into a runnable program.
// Assembly is deterministic: identical context and code produce an
// identical Script.
type ScriptAssembler struct{}

func NewScriptAssembler() *ScriptAssembler {
	return &ScriptAssembler{}
}

// Assemble combines the fixed prelude, the helper library and the user
// code into one source text, and marshals the context into the stdin
// document the prelude reads. Context values are bound by JSON parsing
// on the script side rather than by splicing literals into the source,
// so parameter content cannot alter the program.
func (a *ScriptAssembler) Assemble(runCtx models.RunContext, userCode string) (models.Script, error) {
	input, err := json.Marshal(runCtx)
	if err != nil {
		return models.Script{}, fmt.Errorf("marshal run context: %w", err)
	}

	var b strings.Builder
	b.WriteString(pythonPrelude)
	b.WriteString(pythonHelpers)
	b.WriteString(pythonUserHeader)
	b.WriteString(indentCode(userCode))
	b.WriteString(pythonUserFooter)

	return models.Script{Source: b.String(), Input: input}, nil
}

// indentCode shifts every user code line into the guarded try block
func indentCode(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
