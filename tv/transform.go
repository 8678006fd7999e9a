// Package tv ties the type system, symbolic execution and refinement
// checker together into the end-to-end verification driver (§4.8).
package tv

import (
	"fmt"
	"strings"

	"github.com/borzacchiello/alivetv/ir"
)

// Transform is one `Name: ... Pre: ... src => tgt` record parsed from
// the surface syntax (§6). Pre is carried as a stub: the core treats
// preconditions as an opaque black-box predicate, so it is not
// evaluated here, only preserved for diagnostics and reprinting.
type Transform struct {
	Name string
	Pre  string
	Src  *ir.Function
	Tgt  *ir.Function
}

func (t *Transform) String() string {
	var b strings.Builder
	if t.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", t.Name)
	}
	if t.Pre != "" {
		fmt.Fprintf(&b, "Pre: %s\n", t.Pre)
	}
	b.WriteString(t.Src.String())
	b.WriteString("=>\n")
	b.WriteString(t.Tgt.String())
	return b.String()
}

// Header is the one-line summary printed when the CLI's
// --print-header flag is set.
func (t *Transform) Header() string {
	if t.Name == "" {
		return fmt.Sprintf("%s => %s", t.Src.Name, t.Tgt.Name)
	}
	return t.Name
}
