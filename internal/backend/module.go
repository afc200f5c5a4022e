package backend

import (
	"strings"

	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/config"
)

// Module is one MGM backend module queried for context
type Module struct {
	Name string
	// Index is the 1-based position in the enumeration, sent as moduleIndex
	Index int
	// XPath optionally narrows an HTML page before text extraction
	XPath string
}

// ModulesFromSpecs numbers specs in enumeration order
func ModulesFromSpecs(specs []config.ModuleSpec) []Module {
	modules := make([]Module, len(specs))
	for i, s := range specs {
		modules[i] = Module{Name: s.Name, Index: i + 1, XPath: s.XPath}
	}
	return modules
}

// Status is the availability of one fragment
type Status int

const (
	StatusOK Status = iota
	StatusUnavailable
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Fragment is one module's contribution to the context block
type Fragment struct {
	Module string
	Body   string
	Status Status
	// HTTPStatus is set when the backend answered
	HTTPStatus int
	Err        error
}

// Available reports whether the fragment carries module data
func (f Fragment) Available() bool {
	return f.Status == StatusOK
}

// Render formats the fragment as it appears in the system instruction
func (f Fragment) Render() string {
	var sb strings.Builder
	sb.WriteString("\n### ")
	sb.WriteString(f.Module)
	switch f.Status {
	case StatusOK:
		sb.WriteString(" Module Data:\n")
		sb.WriteString(f.Body)
	case StatusUnavailable:
		sb.WriteString(" Module: Not available")
	default:
		sb.WriteString(" Module: Error fetching data")
	}
	return sb.String()
}
