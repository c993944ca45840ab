package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	assert.Equal(t, OK, Of(nil))
	assert.Equal(t, InvalidRegion, Of(InvalidRegion))
	assert.Equal(t, PersistFailed, Of(Wrap(PersistFailed, "settings.save", errors.New("disk"))))
	assert.Equal(t, Error, Of(errors.New("plain")))
}

func TestWrapMatchesCode(t *testing.T) {
	cause := errors.New("eof")
	err := fmt.Errorf("restore: %w", Wrap(RestoreFailed, "settings.restore", cause))

	assert.ErrorIs(t, err, RestoreFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, DecodeFailed)
	assert.Equal(t, "restore: settings.restore: restore_failed: eof", err.Error())
}
