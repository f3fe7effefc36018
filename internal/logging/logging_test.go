package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/orderdeck/internal/config"
	"github.com/waabox/orderdeck/internal/logging"
)

func TestNew_ParsesLevel(t *testing.T) {
	logger := logging.New(config.LogConfig{Level: "debug"})
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger := logging.New(config.LogConfig{Level: "chatty"})
	assert.Equal(t, log.InfoLevel, logger.GetLevel())
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "orderdeck.log")
	logger := logging.New(config.LogConfig{File: path})

	logger.Info("refresh succeeded")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "refresh succeeded")
}
