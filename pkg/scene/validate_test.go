package scene

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildValidTree creates a small consistent tree: root with two children,
// one of which has a keyed child.
func buildValidTree(t *testing.T) *Node {
	t.Helper()
	root := NewNode("root")
	arm := NewNode("arm")
	leg := NewNode("leg")
	hand := NewNode("hand")
	require.NoError(t, root.AddChild(arm))
	require.NoError(t, root.AddChild(leg))
	require.NoError(t, arm.AddChild(hand))
	require.NoError(t, hand.SaveKeyframe(0))
	require.NoError(t, hand.SaveKeyframe(30))
	return root
}

// hasFinding returns true if errs contains a finding of the given severity
// whose message contains substr.
func hasFinding(errs []ValidationError, sev ValidationSeverity, substr string) bool {
	for _, e := range errs {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateValidTree(t *testing.T) {
	errs := Validate(buildValidTree(t))
	assert.Empty(t, errs)
	assert.False(t, HasErrors(errs))
}

func TestValidateDuplicateNames(t *testing.T) {
	root := buildValidTree(t)
	require.NoError(t, root.AddChild(NewNode("arm")))

	errs := Validate(root)
	assert.True(t, hasFinding(errs, SeverityWarning, `duplicate name "arm"`))
	assert.False(t, HasErrors(errs))
}

func TestValidateNonFinite(t *testing.T) {
	root := buildValidTree(t)
	root.Find("leg").Transform().SetScale(1, float32(math.Inf(1)), 1)

	errs := Validate(root)
	assert.True(t, hasFinding(errs, SeverityWarning, "scale"))
}

func TestValidateKeyframeOutOfRange(t *testing.T) {
	root := buildValidTree(t)
	hand := root.Find("hand")
	hand.SetMaxFrames(10)

	errs := Validate(root)
	assert.True(t, hasFinding(errs, SeverityError, "keyframe 30"))
	assert.True(t, HasErrors(errs))
}

func TestValidateBrokenParentLink(t *testing.T) {
	root := buildValidTree(t)
	stray := NewNode("stray")
	// Bypass AddChild to corrupt the tree.
	root.children = append(root.children, stray)

	errs := Validate(root)
	assert.True(t, hasFinding(errs, SeverityError, "parent link"))
}

func TestValidateCycleTerminates(t *testing.T) {
	root := buildValidTree(t)
	hand := root.Find("hand")
	hand.children = append(hand.children, root)

	errs := Validate(root)
	assert.True(t, hasFinding(errs, SeverityError, "more than once"))
}

func TestValidationErrorString(t *testing.T) {
	n := NewNode("arm")
	e := finding(n, SeverityWarning, "odd")
	assert.Contains(t, e.Error(), "[warning]")
	assert.Contains(t, e.Error(), "(arm): odd")
	assert.Equal(t, "error", SeverityError.String())
}
