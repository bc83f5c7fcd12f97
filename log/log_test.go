package log_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/weft/assert"
	"github.com/loomworks/weft/log"
	"github.com/loomworks/weft/types"
)

type fakeWorld struct {
	components []types.ComponentInfo
	entities   int
}

func (f *fakeWorld) GetRegisteredComponents() []types.ComponentInfo { return f.components }

func (f *fakeWorld) EntityCount() int { return f.entities }

func TestWorldLogger(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)

	// Components come back unsorted; the event must order them by id.
	target := &fakeWorld{
		components: []types.ComponentInfo{
			{ID: 1, Name: "health", Entities: 7},
			{ID: 0, Name: "position", Entities: 9},
		},
		entities: 9,
	}

	log.World(&bufLogger, target, zerolog.InfoLevel)
	require.JSONEq(t, `
		{
			"level":"info",
			"total_components":2,
			"components":
				[
					{
						"component_id":0,
						"component_name":"position",
						"entities":9
					},
					{
						"component_id":1,
						"component_name":"health",
						"entities":7
					}
				],
			"total_entities":9
		}`, buf.String())
	buf.Reset()

	log.Components(&bufLogger, target, zerolog.DebugLevel)
	require.JSONEq(t, `
		{
			"level":"debug",
			"total_components":2,
			"components":
				[
					{
						"component_id":0,
						"component_name":"position",
						"entities":9
					},
					{
						"component_id":1,
						"component_name":"health",
						"entities":7
					}
				]
		}`, buf.String())
	buf.Reset()

	log.Entity(&bufLogger, zerolog.DebugLevel, types.NewEntityID(3, 2))
	require.JSONEq(t, `
		{
			"level":"debug",
			"entity_id":8589934595,
			"entity_index":3,
			"entity_generation":2
		}`, buf.String())
}

func TestCreateWorldLogger(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)

	worldLogger := log.CreateWorldLogger(&bufLogger, "galaxy-1", "instance-a")
	worldLogger.Info().Msg("hello")
	require.JSONEq(t, `
		{
			"level":"info",
			"namespace":"galaxy-1",
			"instance":"instance-a",
			"message":"hello"
		}`, buf.String())
}

func TestCreateDispatchLogger(t *testing.T) {
	var buf bytes.Buffer
	bufLogger := zerolog.New(&buf)

	dispatchLogger := log.CreateDispatchLogger(&bufLogger, "position", types.OpUpdate)
	dispatchLogger.Log().Msg("pass done")
	require.JSONEq(t, `
		{
			"component":"position",
			"operation":"update",
			"message":"pass done"
		}`, buf.String())
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	logger, err := log.NewLogger("warn", false)
	assert.NilError(t, err)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := log.NewLogger("chatty", false)
	assert.IsError(t, err)
	assert.ErrorContains(t, err, `log level "chatty" is invalid`)
}
