package consumer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalClassification(t *testing.T) {
	t.Run("plain errors are retryable", func(t *testing.T) {
		assert.False(t, IsFatal(errors.New("transient")))
	})

	t.Run("fatal marker survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("decode payload: %w", Fatal(errors.New("bad json")))
		assert.True(t, IsFatal(err))
	})

	t.Run("fatal of nil is nil", func(t *testing.T) {
		assert.NoError(t, Fatal(nil))
	})

	t.Run("fatal unwraps to the cause", func(t *testing.T) {
		cause := errors.New("bad json")
		assert.ErrorIs(t, Fatal(cause), cause)
	})
}

func TestHandlerFunc(t *testing.T) {
	called := false
	h := HandlerFunc(func(ctx context.Context, msg *Message) error {
		called = true
		return nil
	})
	assert.NoError(t, h.Handle(context.Background(), &Message{}))
	assert.True(t, called)
}

func TestNew_Validation(t *testing.T) {
	t.Run("requires brokers", func(t *testing.T) {
		_, err := New(Config{Group: "g"}, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("requires group", func(t *testing.T) {
		_, err := New(Config{Brokers: []string{"localhost:9092"}}, nil, nil, nil)
		assert.Error(t, err)
	})
}
