package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug", "JSON")
	log.WithField("post_id", 3).Info("Created post")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Created post", line["msg"])
	assert.Equal(t, float64(3), line["post_id"])
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.Debug("hidden")
	assert.Empty(t, buf.String())
	log.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestGormLoggerWritesThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	gl := GormLogger(NewWithOutput(&buf, "info", "text"))

	gl.Warn(context.Background(), "slow query on %s", "posts")
	assert.Contains(t, buf.String(), "slow query on posts")

	buf.Reset()
	gl.Info(context.Background(), "chatty")
	assert.Empty(t, buf.String(), "info is only traced at debug level")
}
