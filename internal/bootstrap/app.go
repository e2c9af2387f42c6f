package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"legalrecords-assistant/internal/config"
	"legalrecords-assistant/internal/llm"
	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/platform/logger"
	mysqlClient "legalrecords-assistant/internal/platform/mysql"
	rabbitmqClient "legalrecords-assistant/internal/platform/rabbitmq"
	redisClient "legalrecords-assistant/internal/platform/redis"
	"legalrecords-assistant/internal/repository"
	"legalrecords-assistant/internal/worker"
)

// App holds the process-wide clients. Redis and RabbitMQ are optional: when
// they are unreachable at startup the history cache and the audit trail are
// disabled and the assistant keeps answering.
type App struct {
	Config     *config.Config
	Log        *logger.Logger
	MySQL      *gorm.DB
	Redis      *redis.Client
	MQConn     *amqp.Connection
	Dispatcher *llm.Dispatcher

	QueryLogPublisher *rabbitmqClient.QueryLogPublisher
	QueryLogWorker    *worker.QueryLogWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.Log.Mode)
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.CaseRecord{},
		&model.Document{},
		&model.Conversation{},
		&model.Message{},
		&model.QueryLog{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	dispatcher, err := llm.NewDispatcher(cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("init llm dispatcher failed: %w", err)
	}

	app := &App{
		Config:     cfg,
		Log:        log,
		MySQL:      mysqlDB,
		Dispatcher: dispatcher,
		StartedAt:  time.Now(),
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, history cache disabled", "addr", cfg.Redis.Addr, "error", err)
	} else {
		app.Redis = redisCli
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.QueryLogQueue)
	if err != nil {
		log.Warn("rabbitmq unavailable, query audit disabled", "error", err)
		return app, nil
	}
	app.MQConn = mqConn
	app.QueryLogPublisher = rabbitmqClient.NewQueryLogPublisher(mqConn, cfg.RabbitMQ.QueryLogQueue)

	queryLogRepo := repository.NewQueryLogRepository(mysqlDB)
	app.QueryLogWorker = worker.NewQueryLogWorker(mqConn, queryLogRepo, cfg.RabbitMQ.QueryLogQueue, log)
	if err := app.QueryLogWorker.Start(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("start query log worker failed: %w", err)
	}

	log.Info("bootstrap finished",
		"active_provider", dispatcher.Active(),
		"redis", app.Redis != nil,
		"rabbitmq", app.MQConn != nil,
	)
	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.QueryLogWorker != nil {
		a.QueryLogWorker.Close()
	}
	if a.QueryLogPublisher != nil {
		a.QueryLogPublisher.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return closeErr
}
