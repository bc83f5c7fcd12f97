// Package statsd wraps the DataDog client behind a package-level interface,
// keeping DataDog types out of the rest of the engine. The default client is
// a no-op; Init swaps in a real one when a world is configured with an agent
// address.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/loomworks/weft/types"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitDispatchStat records the wall time of one dispatch pass over a
// component storage, tagged with the component name and operation.
func EmitDispatchStat(start time.Time, componentName string, op types.Operation) {
	duration := time.Since(start)
	err := Client().Timing("dispatch", duration, []string{"component:" + componentName, "op:" + op.String()}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit dispatch stat: %v", err)
	}
}

// EmitApplyStat records the wall time of draining a deferred operation queue.
func EmitApplyStat(start time.Time, applied int) {
	duration := time.Since(start)
	err := Client().Timing("apply", duration, nil, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit apply stat: %v", err)
	}
	err = Client().Count("apply.ops", int64(applied), nil, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit apply op count: %v", err)
	}
}

// Init replaces the no-op client with one talking to the agent at the given
// address. Every metric is emitted under the "weft" prefix with the given
// constant tags.
func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("statsd address must not be empty")
	}
	opts := []ddstatsd.Option{
		ddstatsd.WithNamespace("weft"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}
	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrap(err, "failed to create statsd client")
	}
	client = newClient
	return nil
}
