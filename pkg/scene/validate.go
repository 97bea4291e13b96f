package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// ValidationSeverity indicates whether a validation finding means the tree
// is broken or is merely suspicious.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // tree is inconsistent
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   uuid.UUID          // which node has the problem
	Name     string             // display name of that node
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] node %s (%s): %s", e.Severity, shortID(e.NodeID), e.Name, e.Message)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

// Validate checks the tree under root and returns every finding. An empty
// slice means the tree is consistent. Validate never mutates the tree.
// When the links are broken the remaining checks are skipped, since they
// walk the tree.
func Validate(root *Node) []ValidationError {
	errs := validateLinks(root)
	if len(errs) > 0 {
		return errs
	}
	errs = append(errs, validateNames(root)...)
	errs = append(errs, validateTransforms(root)...)
	errs = append(errs, validateKeyframes(root)...)
	return errs
}

// HasErrors reports whether any finding is error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func finding(n *Node, sev ValidationSeverity, format string, args ...interface{}) ValidationError {
	return ValidationError{
		NodeID:   n.ID,
		Name:     n.Name,
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
	}
}

// validateLinks checks that every child points back at its parent and that
// no node is reachable twice. The walk does not rely on ForEach so that it
// terminates on a corrupted tree.
func validateLinks(root *Node) []ValidationError {
	var errs []ValidationError
	seen := make(map[*Node]bool)

	var visit func(n *Node)
	visit = func(n *Node) {
		seen[n] = true
		for _, c := range n.children {
			if c.parent != n {
				errs = append(errs, finding(c, SeverityError,
					"parent link does not match %q", n.Name))
			}
			if seen[c] {
				errs = append(errs, finding(c, SeverityError,
					"reachable more than once (cycle or shared child)"))
				continue
			}
			visit(c)
		}
	}
	visit(root)
	return errs
}

// validateNames warns about display names used by more than one node.
func validateNames(root *Node) []ValidationError {
	var errs []ValidationError
	counts := make(map[string]int)
	root.ForEach(func(n *Node) {
		counts[n.Name]++
		if counts[n.Name] == 2 {
			errs = append(errs, finding(n, SeverityWarning, "duplicate name %q", n.Name))
		}
	})
	return errs
}

func validateTransforms(root *Node) []ValidationError {
	var errs []ValidationError
	root.ForEach(func(n *Node) {
		t := n.transform
		for _, f := range []struct {
			name string
			v    mgl32.Vec3
		}{
			{"position", t.position},
			{"rotation", t.rotation},
			{"scale", t.scale},
			{"pivot", t.pivot},
		} {
			if !finite(f.v) {
				errs = append(errs, finding(n, SeverityWarning, "%s %v is not finite", f.name, f.v))
			}
		}
	})
	return errs
}

func validateKeyframes(root *Node) []ValidationError {
	var errs []ValidationError
	root.ForEach(func(n *Node) {
		for _, f := range n.Keyframes() {
			if f < 0 || f > n.maxFrames {
				errs = append(errs, finding(n, SeverityError,
					"keyframe %d not in [0, %d]", f, n.maxFrames))
			}
		}
	})
	return errs
}
