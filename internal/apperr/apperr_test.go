package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindExpired, KindOf(Expired("credential expired")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("lookup: %w", NotFound("session not found"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("verify: %w", InvalidCode("no matching credential"))
	assert.True(t, errors.Is(err, ErrInvalidCode))
	assert.False(t, errors.Is(err, ErrExpired))
}

func TestMessageOfHidesInternalDetail(t *testing.T) {
	err := Internal("load seminar", errors.New("connection reset"))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.Equal(t, "not enrolled", MessageOf(NotEnrolled("not enrolled")))
	assert.ErrorContains(t, err, "connection reset")
}
