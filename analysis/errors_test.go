package analysis

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassOf_WrappedClassifiedError(t *testing.T) {
	// GIVEN a corrupt-data error wrapped twice
	base := Corrupt(ErrTableCorrupt, "extractor", "step_trace")
	wrapped := fmt.Errorf("device 0: %w", base)

	// THEN the class survives wrapping and the sentinel is still reachable
	assert.Equal(t, ClassDataCorrupt, ClassOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrTableCorrupt))
	assert.True(t, IsFatal(wrapped))
}

func TestIsFatal_UnavailableIsNotFatal(t *testing.T) {
	err := Unavailable(ErrTableMissing, "extractor", "npu_mem")
	assert.False(t, IsFatal(err))
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(errors.New("plain")), "unclassified errors are fatal")
}

func TestNewError_NilStaysNil(t *testing.T) {
	assert.NoError(t, Configuration(nil, "pipeline", "init"))
}

func TestError_Message(t *testing.T) {
	err := Exhausted(ErrCapacity, "extractor", "task_time")
	assert.Equal(t, "resource-exhaustion: extractor.task_time: cannot reserve output capacity", err.Error())

	err = Assembly(ErrNoEvents, "assemble", "")
	assert.Equal(t, "assembly: assemble: assembler produced no events", err.Error())
}

func TestClass_String(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{ClassConfiguration, "configuration"},
		{ClassDataUnavailable, "data-unavailable"},
		{ClassDataCorrupt, "data-corrupt"},
		{ClassResourceExhaustion, "resource-exhaustion"},
		{ClassAssembly, "assembly"},
		{Class(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.class.String())
		})
	}
}
