package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bayusegara27/discora-backend/internal/audit"
	"github.com/bayusegara27/discora-backend/internal/cache"
	"github.com/bayusegara27/discora-backend/internal/config"
	"github.com/bayusegara27/discora-backend/internal/cooldown"
	"github.com/bayusegara27/discora-backend/internal/database"
	"github.com/bayusegara27/discora-backend/internal/giveaway"
	"github.com/bayusegara27/discora-backend/internal/jobs"
	"github.com/bayusegara27/discora-backend/internal/leveling"
	"github.com/bayusegara27/discora-backend/internal/models"
	"github.com/bayusegara27/discora-backend/internal/moderation"
	"github.com/bayusegara27/discora-backend/internal/platform"
	"github.com/bayusegara27/discora-backend/internal/stats"
	"github.com/bayusegara27/discora-backend/internal/youtube"
	"github.com/bwmarrin/discordgo"
)

const (
	heartbeatInterval    = 30 * time.Second
	youtubeInterval      = time.Minute
	metadataInterval     = time.Minute
	scheduledInterval    = time.Minute
	giveawayEndInterval  = time.Minute
	queueInterval        = 15 * time.Second
	moderationInterval   = 10 * time.Second
	statsInterval        = 2 * time.Minute
	memberSyncInterval   = 15 * time.Minute
	stateMaxMessageCount = 1000

	defaultWeeklyRetention = 35
)

// Deps are the collaborators the bot is assembled from. Session may be nil in
// tests; Classifier and Feeds are optional.
type Deps struct {
	Session    *discordgo.Session
	Client     platform.Client
	Repo       *database.Repository
	Cache      *cache.Manager
	Cooldowns  cooldown.Store
	Classifier moderation.Classifier
	Feeds      youtube.FeedSource
	Workers    int
}

type Bot struct {
	Session *discordgo.Session
	Repo    *database.Repository

	client    platform.Client
	cache     *cache.Manager
	audit     *audit.Logger
	levels    *leveling.Engine
	stats     *stats.Aggregator
	queues    *jobs.Processors
	giveaways *giveaway.Manager
	youtube   *youtube.Poller
	moderator *moderation.Moderator
	prefix    string
	workers   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(deps Deps) *Bot {
	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}
	prefix := config.CommandPrefix
	if prefix == "" {
		prefix = "!"
	}
	retention := config.StatsWeeklyRetention
	if retention <= 0 {
		retention = defaultWeeklyRetention
	}

	auditLog := audit.NewLogger(deps.Repo)
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		Session:   deps.Session,
		Repo:      deps.Repo,
		client:    deps.Client,
		cache:     deps.Cache,
		audit:     auditLog,
		levels:    leveling.NewEngine(deps.Repo, deps.Client, deps.Cooldowns),
		stats:     stats.NewAggregator(deps.Repo, deps.Client, deps.Cache, retention, workers),
		queues:    jobs.NewProcessors(deps.Repo, deps.Client, auditLog, workers),
		giveaways: giveaway.NewManager(deps.Repo, deps.Client, auditLog, workers),
		moderator: moderation.NewModerator(deps.Client, auditLog, deps.Classifier),
		prefix:    prefix,
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
	}
	if deps.Feeds != nil {
		b.youtube = youtube.NewPoller(deps.Repo, deps.Feeds, deps.Client, workers)
	}

	if b.Session != nil {
		b.registerHandlers()
	}
	return b
}

// Start loads the settings cache, opens the gateway session and launches
// the background jobs.
func (b *Bot) Start() error {
	if err := b.cache.Refresh(); err != nil {
		log.Printf("[CACHE] Initial sync failed: %v", err)
	}

	b.Session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent
	b.Session.State.MaxMessageCount = stateMaxMessageCount

	if err := b.Session.Open(); err != nil {
		return err
	}

	b.cache.Start(time.Duration(config.CacheRefreshSeconds) * time.Second)
	b.startJobs()
	return nil
}

func (b *Bot) Stop() {
	b.cancel()
	b.wg.Wait()
	b.cache.Shutdown()
	if b.Session != nil {
		b.Session.Close()
	}
}

func (b *Bot) registerHandlers() {
	b.Session.AddHandler(b.ready)
	b.Session.AddHandler(b.guildCreate)
	b.Session.AddHandler(b.guildDelete)
	b.Session.AddHandler(b.messageCreate)
	b.Session.AddHandler(b.messageDelete)
	b.Session.AddHandler(b.guildMemberAdd)
	b.Session.AddHandler(b.guildMemberRemove)
	b.Session.AddHandler(b.messageReactionAdd)
	b.Session.AddHandler(b.messageReactionRemove)
	b.Session.AddHandler(b.interactionCreate)
}

func (b *Bot) startJobs() {
	b.every("heartbeat", heartbeatInterval, true, b.heartbeat)
	b.every("CRON: YouTube", youtubeInterval, false, b.checkYoutube)
	b.every("CRON: MetadataSync", metadataInterval, false, func(ctx context.Context) {
		b.syncMetadata(ctx, b.guildIDs())
	})
	b.every("CRON: ScheduledMsg", scheduledInterval, false, summarize("CRON: ScheduledMsg", b.queues.ProcessScheduledMessages))
	b.every("CRON: Giveaways", giveawayEndInterval, false, summarize("CRON: Giveaways", b.giveaways.CheckDue))
	b.every("CRON: ReactionRoles", queueInterval, false, summarize("CRON: ReactionRoles", b.queues.ProcessReactionRoleQueue))
	b.every("CRON: GiveawayQueue", queueInterval, false, summarize("CRON: GiveawayQueue", b.queues.ProcessGiveawayQueue))
	b.every("CRON: Moderation", moderationInterval, false, summarize("CRON: Moderation", b.queues.ProcessModerationQueue))
	b.every("CRON: Stats", statsInterval, false, func(ctx context.Context) {
		b.stats.RefreshAll(ctx, b.guildIDs())
	})
	b.every("CRON: MemberSync", memberSyncInterval, false, func(ctx context.Context) {
		b.syncMembers(ctx, b.guildIDs())
	})

	b.wg.Add(1)
	go b.dailyReset()
}

// every runs fn on a fixed interval until Stop. With immediate set the first
// run happens right away.
func (b *Bot) every(name string, interval time.Duration, immediate bool, fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if immediate {
			b.runJob(name, fn)
		}
		for {
			select {
			case <-ticker.C:
				b.runJob(name, fn)
			case <-b.ctx.Done():
				return
			}
		}
	}()
}

func (b *Bot) runJob(name string, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] Recovered from panic: %v", name, r)
		}
	}()
	fn(b.ctx)
}

// summarize adapts a queue run to the scheduler and logs its outcome.
func summarize(name string, run func(ctx context.Context) (jobs.Summary, error)) func(ctx context.Context) {
	return func(ctx context.Context) {
		sum, err := run(ctx)
		if err != nil {
			log.Printf("[%s] %v", name, err)
			return
		}
		if sum.Failed > 0 {
			log.Printf("[%s] Finished with %d succeeded, %d failed.", name, sum.Succeeded, sum.Failed)
		}
	}
}

func (b *Bot) checkYoutube(ctx context.Context) {
	if b.youtube == nil {
		return
	}
	if _, ran := b.youtube.CheckAll(ctx); !ran {
		log.Println("[CRON: YouTube] Previous check still running, skipping.")
	}
}

func (b *Bot) dailyReset() {
	defer b.wg.Done()
	for {
		timer := time.NewTimer(time.Until(stats.NextDailyReset(time.Now())))
		select {
		case <-timer.C:
			if err := b.stats.DailyReset(b.ctx); err != nil {
				log.Printf("[CRON: DailyReset] %v", err)
			}
		case <-b.ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (b *Bot) heartbeat(ctx context.Context) {
	now := time.Now().UTC()
	status := &models.ServiceStatus{
		ServiceName:   "discord_bot",
		Status:        "operational",
		LastHeartbeat: now,
		Details:       fmt.Sprintf("%d guilds", len(b.guildIDs())),
	}
	if err := b.Repo.UpsertServiceStatus(status); err != nil {
		log.Printf("Error sending heartbeat: %v", err)
	}
	if err := b.Repo.TouchSystemStatus(now); err != nil {
		log.Printf("Error updating system status: %v", err)
	}
}

func (b *Bot) guildIDs() []string {
	if b.Session == nil || b.Session.State == nil {
		return nil
	}
	b.Session.State.RLock()
	defer b.Session.State.RUnlock()
	ids := make([]string, 0, len(b.Session.State.Guilds))
	for _, g := range b.Session.State.Guilds {
		ids = append(ids, g.ID)
	}
	return ids
}

func (b *Bot) guildName(guildID string) string {
	if g, err := b.client.Guild(guildID); err == nil && g.Name != "" {
		return g.Name
	}
	return guildID
}

func (b *Bot) updateBotStatus() {
	serverCount := len(b.guildIDs())
	err := b.Session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: fmt.Sprintf("%d servers", serverCount),
				Type: discordgo.ActivityTypeWatching,
			},
		},
	})
	if err != nil {
		log.Printf("Error updating status: %v", err)
	}
}
