package toolexecutor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() ToolDefinition {
	return ToolDefinition{
		Name:        "echo",
		Description: "Returns its input",
		Parameters: []ToolParameter{
			{Name: "message", Type: "string", Description: "text to echo", Required: true},
			{Name: "repeat", Type: "integer", Description: "times to repeat", Default: float64(1)},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			msg := params["message"].(string)
			n := int(params["repeat"].(float64))
			out := ""
			for i := 0; i < n; i++ {
				out += msg
			}
			return out, nil
		},
	}
}

func TestRegisterTool(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(echoTool()))

	assert.NotNil(t, te.GetTool("echo"))
	assert.Contains(t, te.ListTools(), "echo")
}

func TestRegisterTool_Invalid(t *testing.T) {
	te := New()

	err := te.RegisterTool(ToolDefinition{Description: "no name", Handler: func(ctx context.Context, p map[string]interface{}) (interface{}, error) { return nil, nil }})
	require.Error(t, err)

	err = te.RegisterTool(ToolDefinition{Name: "broken", Description: "bad type", Handler: func(ctx context.Context, p map[string]interface{}) (interface{}, error) { return nil, nil },
		Parameters: []ToolParameter{{Name: "x", Type: "float"}}})
	require.Error(t, err)
}

func TestExecute(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(echoTool()))

	result := te.Execute(context.Background(), "echo", map[string]interface{}{
		"message": "hi",
		"repeat":  float64(2),
	})
	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "hihi", result.Output)
}

func TestExecute_AppliesDefaults(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(echoTool()))

	result := te.Execute(context.Background(), "echo", map[string]interface{}{"message": "x"})
	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "x", result.Output)
}

func TestExecute_MissingRequired(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(echoTool()))

	result := te.Execute(context.Background(), "echo", map[string]interface{}{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "validation failed")
}

func TestExecute_UnknownTool(t *testing.T) {
	te := New()
	result := te.Execute(context.Background(), "nope", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool not found")
}

func TestExecute_HandlerError(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "fail",
		Description: "always fails",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, fmt.Errorf("boom")
		},
	}))

	result := te.Execute(context.Background(), "fail", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
}
