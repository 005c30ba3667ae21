package recruitment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/ranks"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/handlers"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/broadcast"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/discord"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/presentation/controllers"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/services"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/application"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/configuration"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/outbox"
	outboxeventbus "github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/outbox/dispatchers/eventbus"
)

type ModuleOptions struct {
	Config *configuration.Configuration
	// Identity overrides the provider built from Config.Discord.
	Identity services.IdentityProvider
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Name() string {
	return "recruitment"
}

func (m *Module) Register(app application.Application) error {
	conf := m.opts.Config
	if conf == nil {
		conf = configuration.Use()
	}
	tier, ok := ranks.Lookup(conf.Recruitment.StartRankLevel)
	if !ok {
		return fmt.Errorf("start rank level %d is not on the rank ladder", conf.Recruitment.StartRankLevel)
	}

	identity := m.opts.Identity
	if identity == nil {
		provider, err := discord.NewFromConfig(discord.Config{
			BotToken:        conf.Discord.BotToken,
			GuildID:         conf.Discord.GuildID,
			InviteChannelID: conf.Discord.InviteChannelID,
		})
		if err != nil {
			return errors.Wrap(err, "identity provider")
		}
		identity = provider
	}
	if _, disabled := identity.(discord.Disabled); disabled {
		app.Logger().Warn("recruitment: discord is not configured, identity side effects are skipped")
	}

	outboxWriter, err := persistence.NewOutboxWriter()
	if err != nil {
		return errors.Wrap(err, "outbox writer")
	}

	applicants := persistence.NewApplicantRepository()
	employees := persistence.NewEmployeeRepository()
	blacklistRepo := persistence.NewBlacklistRepository()
	configRepo := persistence.NewConfigItemRepository()

	cache := services.NewConfigCache(configRepo, conf.Recruitment.ConfigCacheTTL)
	gate := services.NewBlacklistGate(blacklistRepo)
	badges := services.NewBadgeAllocator(employees, conf.Recruitment.BadgeClaimAttempts)
	tx := services.NewPoolTransactor()

	app.RegisterServices(
		cache,
		services.NewOnboardingService(services.OnboardingDeps{
			Applicants: applicants,
			Employees:  employees,
			Blacklist:  blacklistRepo,
			Config:     cache,
			Gate:       gate,
			Badges:     badges,
			Identity:   services.NewIdentitySync(identity, conf.Discord.RoleIDs()),
			Bonus:      services.NewLogBonusTrigger(),
			Publisher:  app.EventPublisher(),
			Outbox:     outboxWriter,
			Tx:         tx,
		}, services.OnboardingOptions{
			StartRankLevel: tier.Level,
			InviteTTL:      conf.Recruitment.InviteTTL,
			InviteMaxUses:  conf.Recruitment.InviteMaxUses,
		}),
		services.NewEmployeeService(employees, badges, app.EventPublisher(), outboxWriter, tx),
		services.NewConfigItemService(configRepo, cache, app.EventPublisher(), tx),
		services.NewBlacklistService(blacklistRepo, gate, tx),
	)

	app.RegisterControllers(
		controllers.NewRecruitmentAPIController(app),
	)

	runners, err := m.outboxRunners(app, conf)
	if err != nil {
		return err
	}
	app.RegisterRunners(runners...)
	return nil
}

func (m *Module) outboxRunners(app application.Application, conf *configuration.Configuration) ([]application.Runner, error) {
	if app.DB() == nil {
		return nil, nil
	}
	logger := app.Logger().WithField("component", "recruitment.outbox")
	var runners []application.Runner

	if conf.Outbox.RelayEnabled {
		bus, ok := app.EventPublisher().(eventbus.EventBusWithError)
		if !ok {
			return nil, errors.New("recruitment outbox relay needs an event bus that reports handler errors")
		}
		handlers.RegisterOutboxEventHandlers(bus, logger)

		dispatchers := outbox.Fanout{outboxeventbus.New(bus)}
		if conf.Broadcast.Enabled {
			client := broadcast.NewRedisClient(conf.Broadcast.RedisURL)
			dispatchers = append(dispatchers, broadcast.NewRedisDispatcher(client, conf.Broadcast.Channel))
		}

		relay, err := outbox.NewRelay(app.DB(), persistence.OutboxTable, dispatchers, outbox.RelayOptions{
			PollInterval: conf.Outbox.RelayPollInterval,
			BatchSize:    conf.Outbox.RelayBatchSize,
			MaxAttempts:  conf.Outbox.RelayMaxAttempts,
			SingleActive: conf.Outbox.RelaySingleActive,
			Logger:       logger,
		})
		if err != nil {
			return nil, errors.Wrap(err, "outbox relay")
		}
		runners = append(runners, runnerFunc{name: "recruitment.outbox.relay", run: relay.Run})
	}

	if conf.Outbox.CleanerEnabled {
		cleaner, err := outbox.NewCleaner(app.DB(), persistence.OutboxTable, outbox.CleanerOptions{
			Interval:    conf.Outbox.CleanerInterval,
			Retention:   conf.Outbox.CleanerRetention,
			MaxAttempts: conf.Outbox.RelayMaxAttempts,
			Logger:      logger,
		})
		if err != nil {
			return nil, errors.Wrap(err, "outbox cleaner")
		}
		runners = append(runners, runnerFunc{name: "recruitment.outbox.cleaner", run: cleaner.Run})
	}
	return runners, nil
}

type runnerFunc struct {
	name string
	run  func(ctx context.Context) error
}

func (r runnerFunc) Name() string { return r.name }

func (r runnerFunc) Start(ctx context.Context) error {
	err := r.run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
