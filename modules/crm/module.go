package crm

import (
	"context"
	"embed"

	"github.com/redis/go-redis/v9"

	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/enrichment"
	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/notify"
	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/persistence"
	"github.com/dealdesk/dealdesk/modules/crm/presentation/controllers"
	"github.com/dealdesk/dealdesk/modules/crm/services"
	"github.com/dealdesk/dealdesk/pkg/application"
	"github.com/dealdesk/dealdesk/pkg/configuration"
	"github.com/dealdesk/dealdesk/pkg/optimistic"
	"github.com/dealdesk/dealdesk/pkg/viewcache"
)

//go:embed infrastructure/persistence/schema/crm-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	log := app.Logger()

	store := viewcache.NewMemoryStore()
	var redisClient *redis.Client
	if conf.RedisURL != "" {
		redisOpts, err := redis.ParseURL(conf.RedisURL)
		if err != nil {
			return err
		}
		redisClient = redis.NewClient(redisOpts)
	}
	broadcaster := viewcache.NewBroadcaster(store, redisClient, log)
	broadcaster.Listen(context.Background())

	requestRepo := persistence.NewRequestRepository()
	stageRepo := persistence.NewStageRepository()
	assembler := services.NewAssembler(
		persistence.NewProfileRepository(),
		persistence.NewListingRepository(),
		stageRepo,
		log,
	)

	app.RegisterServices(
		assembler,
		services.NewRequestService(
			requestRepo,
			assembler,
			optimistic.NewEngine(store, log),
			store,
			broadcaster,
			app.EventPublisher(),
			notify.NewWebhookDispatcher(conf.NotificationWebhook),
			log,
		),
		services.NewStageService(stageRepo, broadcaster),
		services.NewPipelineService(
			requestRepo,
			stageRepo,
			assembler,
			store,
			services.BoardOptions{
				WonStageName:  conf.Pipeline.WonStageName,
				DocumentFlags: conf.Pipeline.DocumentFlags,
			},
			log,
		),
		services.NewEnrichmentService(
			enrichment.NewHTTPClient(conf.Enrichment.Endpoint),
			conf.Enrichment,
			log,
		),
	)
	app.RegisterControllers(
		controllers.NewRequestsController(app),
		controllers.NewPipelineController(app),
		controllers.NewStagesController(app),
		controllers.NewEnrichmentController(app),
	)
	services.RegisterAuditSubscribers(app.EventPublisher(), log)
	return nil
}

func (m *Module) Name() string {
	return "crm"
}
