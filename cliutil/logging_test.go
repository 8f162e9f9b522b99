package cliutil

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggingLevels(t *testing.T) {
	cases := []struct {
		verbose int
		want    logrus.Level
	}{
		{0, logrus.ErrorLevel},
		{1, logrus.InfoLevel},
		{2, logrus.DebugLevel},
		{3, logrus.TraceLevel},
	}
	for _, c := range cases {
		require.NoError(t, SetupLogging(c.verbose, true))
		assert.Equal(t, c.want, logrus.GetLevel())
	}
}

func TestSetupLoggingRejectsOutOfRangeVerbosity(t *testing.T) {
	assert.Error(t, SetupLogging(4, true))
}
