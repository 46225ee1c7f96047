package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextExtractTask(t *testing.T) {
	task, err := NewTextExtractTask(TextExtractPayload{
		ResumeID:  3,
		UserID:    9,
		ObjectKey: "resume-sources/9/a.pdf",
		Filename:  "a.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, TypeTextExtract, task.Type())

	p, err := ParseTextExtractPayload(task)
	require.NoError(t, err)
	assert.Equal(t, uint(3), p.ResumeID)
	assert.Equal(t, "a.pdf", p.Filename)
}

func TestNewTextExtractTask_Incomplete(t *testing.T) {
	_, err := NewTextExtractTask(TextExtractPayload{ResumeID: 1})
	assert.Error(t, err)
}
