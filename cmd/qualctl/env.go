package main

import (
	"context"

	"dd-qualification/internal/alerts"
	awsx "dd-qualification/internal/common/aws"
	"dd-qualification/internal/common/config"
	"dd-qualification/internal/common/database"
	"dd-qualification/internal/common/logger"
	pgstore "dd-qualification/internal/evidence/postgres"
	"dd-qualification/internal/findings"
	"dd-qualification/internal/qualification"
	"dd-qualification/internal/snapshot"

	"github.com/pkg/errors"
)

// env is everything a subcommand may need. Optional services are nil when
// not configured.
type env struct {
	cfg      *config.Config
	log      logger.Logger
	pg       *database.PostgresClient
	store    *pgstore.Store
	engine   *qualification.Engine
	redis    *database.RedisClient
	cache    *snapshot.Cache
	index    *findings.Index
	notifier *alerts.Notifier
}

func loadConfig() (cfg *config.Config, err error) {
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
	}
	return cfg, err
}

// openStore connects to Postgres only.
func openStore(ctx context.Context) (e *env, err error) {
	e = &env{}
	e.cfg, err = loadConfig()
	if err != nil {
		return nil, err
	}
	// Diagnostics go to stderr so stdout stays valid JSON.
	e.log = logger.NewNoOpLogger()
	if l, berr := logger.Build(logger.Options{Level: e.cfg.Logging.Level, Format: "console", Output: "stderr"}); berr == nil {
		e.log = logger.NewZapAdapter(l)
	}

	e.pg, err = database.NewPostgres(e.cfg.Database.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open evidence store")
	}
	if err = e.pg.Ping(ctx); err != nil {
		_ = e.pg.Close()
		return nil, errors.Wrap(err, "evidence store unreachable")
	}

	e.store = pgstore.NewStore(e.pg.DB, e.log)
	e.engine = qualification.NewEngine(e.store, e.log)
	return e, nil
}

// openAll connects to Postgres and every configured optional service.
// Optional services that fail are reported and skipped.
func openAll(ctx context.Context) (e *env, err error) {
	e, err = openStore(ctx)
	if err != nil {
		return nil, err
	}

	if e.cfg.Database.Redis.Enabled() {
		rc := database.NewRedis(e.cfg.Database.Redis)
		if perr := rc.Ping(ctx); perr != nil {
			e.log.Warn("snapshot cache disabled", map[string]interface{}{"error": perr.Error()})
			_ = rc.Close()
		} else {
			e.redis = rc
			e.cache = snapshot.NewCache(rc.Client, e.cfg.Qualification.SnapshotPrefix, e.cfg.Qualification.SnapshotTTLDuration(), e.log)
		}
	}

	if e.cfg.Database.Elasticsearch.Enabled() {
		es, eerr := database.NewElasticsearch(e.cfg.Database.Elasticsearch)
		if eerr == nil {
			eerr = es.Ping(ctx)
		}
		if eerr != nil {
			e.log.Warn("findings index disabled", map[string]interface{}{"error": eerr.Error()})
		} else {
			e.index = findings.NewIndex(es.Client, e.cfg.Qualification.FindingsIndex, e.log)
		}
	}

	n := e.cfg.Notifications
	if n.SNS.Enabled || n.SES.Enabled {
		awsCfg, aerr := awsx.LoadConfig(ctx, n.AWS.Region)
		if aerr != nil {
			e.log.Warn("alerts disabled", map[string]interface{}{"error": aerr.Error()})
			return e, nil
		}
		var (
			snsClient awsx.SNSService
			sesClient awsx.SESService
		)
		if n.SNS.Enabled {
			snsClient = awsx.NewSNSClient(awsCfg)
		}
		if n.SES.Enabled {
			sesClient = awsx.NewSESClient(awsCfg)
		}
		e.notifier = alerts.NewNotifier(snsClient, sesClient, alerts.Options{
			TopicARN:   n.SNS.TopicARN,
			FromEmail:  n.SES.FromEmail,
			Recipients: n.SES.Recipients,
		}, e.log)
	}
	return e, nil
}

func (e *env) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.pg != nil {
		_ = e.pg.Close()
	}
}
