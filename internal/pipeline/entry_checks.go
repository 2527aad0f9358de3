package pipeline

import (
	"bell/internal/codegen/mcfunction"
	"bell/internal/diagnostics"
)

// checkEntryNames warns about entry points whose names are not valid
// function paths. They still work, but callers must use the emitted name.
func (p *Pipeline) checkEntryNames() {
	for _, def := range p.tree.Entries() {
		emitted := mcfunction.Sanitize(def.Name)
		if emitted == def.Name {
			continue
		}
		p.diags.Add(diagnostics.NewWarning("entry point "+def.Name+" is emitted as "+emitted).
			WithCode(diagnostics.WarnEntryRenamed).
			WithPrimaryLabel(def.Loc().File(), def.Loc(), "not a valid function path").
			WithHelp("use lowercase letters, digits, '_', '-' and '.' in entry point names"))
	}
}
