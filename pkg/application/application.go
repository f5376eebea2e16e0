package application

import (
	"fmt"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/pkg/eventbus"
)

// Controller is a routable unit registered on the application router.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module is a self-contained feature bundle that contributes services and
// controllers to the application.
type Module interface {
	Name() string
	Register(app Application) error
}

// Application is the composition root: it owns the shared pool, event bus
// and the controller/middleware/service registries modules contribute to.
type Application interface {
	DB() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...any)
	Service(service any) any
}

type ApplicationOptions struct {
	Pool     *pgxpool.Pool
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

func New(opts *ApplicationOptions) Application {
	return &application{
		pool:     opts.Pool,
		eventBus: opts.EventBus,
		logger:   opts.Logger,
		services: make(map[reflect.Type]any),
	}
}

type application struct {
	pool        *pgxpool.Pool
	eventBus    eventbus.EventBus
	logger      *logrus.Logger
	controllers map[string]Controller
	order       []string
	middleware  []mux.MiddlewareFunc
	services    map[reflect.Type]any
}

func (app *application) DB() *pgxpool.Pool {
	return app.pool
}

func (app *application) EventPublisher() eventbus.EventBus {
	return app.eventBus
}

func (app *application) Logger() *logrus.Logger {
	return app.logger
}

func (app *application) Controllers() []Controller {
	result := make([]Controller, 0, len(app.order))
	for _, key := range app.order {
		result = append(result, app.controllers[key])
	}
	return result
}

func (app *application) Middleware() []mux.MiddlewareFunc {
	return app.middleware
}

// RegisterControllers keeps registration order but lets a later controller
// with the same key replace an earlier one.
func (app *application) RegisterControllers(controllers ...Controller) {
	if app.controllers == nil {
		app.controllers = make(map[string]Controller)
	}
	for _, c := range controllers {
		if _, exists := app.controllers[c.Key()]; !exists {
			app.order = append(app.order, c.Key())
		}
		app.controllers[c.Key()] = c
	}
}

func (app *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middleware...)
}

// RegisterServices registers a new service in the application by its type.
func (app *application) RegisterServices(services ...any) {
	for _, service := range services {
		serviceType := reflect.TypeOf(service).Elem()
		app.services[serviceType] = service
	}
}

// Service retrieves a service by its type.
func (app *application) Service(service any) any {
	serviceType := reflect.TypeOf(service)
	svc, exists := app.services[serviceType]
	if !exists {
		panic(fmt.Sprintf("service %s not found", serviceType.Name()))
	}
	return svc
}
