package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamond() Definition {
	return NewDefinition("diamond",
		TaskSpec{ID: "a", Capability: "fetch"},
		TaskSpec{ID: "b", Capability: "analyze", DependsOn: []string{"a"}},
		TaskSpec{ID: "c", Capability: "summarize", DependsOn: []string{"a"}},
		TaskSpec{ID: "d", Capability: "publish", DependsOn: []string{"b", "c"}},
	)
}

func TestValidateAcceptsDiamond(t *testing.T) {
	assert.NoError(t, diamond().Validate())
}

func TestValidateRejectsEmptyWorkflow(t *testing.T) {
	def := NewDefinition("empty")
	assert.Error(t, def.Validate())
}

func TestValidateRejectsStructuralErrors(t *testing.T) {
	t.Run("empty task id", func(t *testing.T) {
		def := NewDefinition("w", TaskSpec{Capability: "x"})
		assert.Error(t, def.Validate())
	})

	t.Run("empty capability", func(t *testing.T) {
		def := NewDefinition("w", TaskSpec{ID: "a"})
		assert.Error(t, def.Validate())
	})

	t.Run("duplicate task id", func(t *testing.T) {
		def := NewDefinition("w",
			TaskSpec{ID: "a", Capability: "x"},
			TaskSpec{ID: "a", Capability: "y"},
		)
		assert.Error(t, def.Validate())
	})

	t.Run("self dependency", func(t *testing.T) {
		def := NewDefinition("w", TaskSpec{ID: "a", Capability: "x", DependsOn: []string{"a"}})
		assert.Error(t, def.Validate())
	})

	t.Run("unknown dependency", func(t *testing.T) {
		def := NewDefinition("w", TaskSpec{ID: "a", Capability: "x", DependsOn: []string{"ghost"}})
		assert.Error(t, def.Validate())
	})
}

func TestValidateRejectsCycle(t *testing.T) {
	def := NewDefinition("cyclic",
		TaskSpec{ID: "a", Capability: "x", DependsOn: []string{"c"}},
		TaskSpec{ID: "b", Capability: "x", DependsOn: []string{"a"}},
		TaskSpec{ID: "c", Capability: "x", DependsOn: []string{"b"}},
	)

	err := def.Validate()
	require.ErrorIs(t, err, ErrCycle)
	// The error names the tasks stuck on the cycle.
	assert.Contains(t, err.Error(), "a, b, c")
}

func TestTaskLookup(t *testing.T) {
	def := diamond()

	spec, ok := def.Task("c")
	require.True(t, ok)
	assert.Equal(t, "summarize", spec.Capability)

	_, ok = def.Task("ghost")
	assert.False(t, ok)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
name: content-pipeline
tasks:
  - id: parse
    description: extract requirements
    capability: parsing
    priority: 1
  - id: build
    description: render the document
    capability: building
    priority: 2
    depends_on: [parse]
    max_retries: 1
    context:
      format: markdown
`)

	def, err := Parse(data)
	require.NoError(t, err)
	assert.NotEmpty(t, def.ID, "missing workflow id is generated")
	assert.Equal(t, "content-pipeline", def.Name)
	require.Len(t, def.Tasks, 2)

	build, ok := def.Task("build")
	require.True(t, ok)
	assert.Equal(t, []string{"parse"}, build.DependsOn)
	assert.Equal(t, 1, build.MaxRetries)
	assert.Equal(t, "markdown", build.Context["format"])
}

func TestParseRejectsInvalidDefinitions(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("tasks: ["))
		assert.Error(t, err)
	})

	t.Run("cyclic yaml", func(t *testing.T) {
		_, err := Parse([]byte(`
name: bad
tasks:
  - id: a
    capability: x
    depends_on: [b]
  - id: b
    capability: x
    depends_on: [a]
`))
		assert.ErrorIs(t, err, ErrCycle)
	})
}

func TestLoadReader(t *testing.T) {
	def, err := Load(strings.NewReader(`
name: tiny
tasks:
  - id: only
    capability: x
`))
	require.NoError(t, err)
	assert.Equal(t, "tiny", def.Name)
}
