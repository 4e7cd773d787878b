package lookup

import (
	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/clock"
	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/connection"
	"github.com/leozw/ws-billing-resolver/internal/mdms"
	"github.com/leozw/ws-billing-resolver/internal/remote"
)

// Observer receives every signal the lookup stack emits. metrics.Collector implements it.
type Observer interface {
	Recorder
	mdms.FallbackRecorder
	remote.FetchObserver
}

// New assembles a Service over http using the given downstream services.
func New(services config.ServicesConfig, remoteCfg config.RemoteConfig, obs Observer, logger *zap.Logger) *Service {
	extractor := remote.NewExtractor()

	return NewService(Config{
		URLs:      NewURLBuilder(services),
		Fetcher:   remote.NewHTTPFetcher(remoteCfg, logger, obs),
		Extractor: extractor,
		Masters:   mdms.NewResolver(extractor, obs, logger),
		Versions:  connection.NewResolver(clock.System()),
		Recorder:  obs,
		Logger:    logger,
	})
}
