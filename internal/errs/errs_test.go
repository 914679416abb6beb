package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/errs"
)

func TestIsMatchesKind(t *testing.T) {
	err := errs.New(errs.KindMemory, "kv_get", errors.New("disk full"))
	require.True(t, errs.Is(err, errs.KindMemory))
	require.False(t, errs.Is(err, errs.KindConfig))
}

func TestToBusErrorMapsBadRequest(t *testing.T) {
	err := errs.New(errs.KindBadRequest, "cron/schedule", errors.New("malformed spec"))
	busErr := errs.ToBusError(err)
	require.Equal(t, int32(-32602), busErr.Code)
}

func TestToBusErrorFallsBackToAppError(t *testing.T) {
	busErr := errs.ToBusError(errors.New("plain error"))
	require.Equal(t, int32(-32000), busErr.Code)
}
