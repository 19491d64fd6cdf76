package xerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, DbError, "load actor")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, DbError, CodeOf(err))
	assert.Contains(t, err.Error(), "refused")
	assert.Nil(t, Wrap(nil, DbError, "noop"))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("resolve item: %w", New(RecordNotFound, "item 9 not found"))

	assert.ErrorIs(t, err, NewErrCode(RecordNotFound))
	assert.NotErrorIs(t, err, NewErrCode(DbError))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: OK},
		{name: "plain error", err: errors.New("x"), want: ServerCommonError},
		{name: "code error", err: NewErrCode(InsufficientFunds), want: InsufficientFunds},
		{name: "wrapped", err: fmt.Errorf("ctx: %w", NewErrCode(InsufficientStock)), want: InsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
