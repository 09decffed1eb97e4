package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Producao-api/pkg/logger"
)

func TestWithMailbox_CamposFijos(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", App: "producao-api", Out: &buf})

	log.WithComponent("nfe_import").WithMailbox(7, 3).Info().Msg("importación finalizada")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "producao-api", line["app"])
	assert.Equal(t, "nfe_import", line["component"])
	assert.Equal(t, float64(7), line["client_id"])
	assert.Equal(t, float64(3), line["config_id"])
	assert.Equal(t, "info", line["level"])
}

func TestNivel_FiltraDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: " WARN ", Out: &buf})

	log.Info().Msg("descartado")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
