package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	cases := map[string]string{
		"":       ModeAll,
		" API ":  ModeAPI,
		"worker": ModeWorker,
		"all":    ModeAll,
	}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	_, err := ParseMode("cron")
	require.Error(t, err)
}

func TestNormalizeOptionsDefaults(t *testing.T) {
	opts := normalizeOptions(Options{})
	require.NotNil(t, opts.Logger)
	require.Equal(t, defaultShutdownTimeout, opts.ShutdownTimeout)
	require.Equal(t, ModeAll, opts.Mode)
}
