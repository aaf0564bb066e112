package methods

import (
	"go.uber.org/zap"

	"github.com/moltis/gateway/internal/broadcast"
	"github.com/moltis/gateway/internal/channels"
	"github.com/moltis/gateway/internal/credentials"
	"github.com/moltis/gateway/internal/cron"
	"github.com/moltis/gateway/internal/gwstate"
	"github.com/moltis/gateway/internal/hooks"
	"github.com/moltis/gateway/internal/pairing"
	"github.com/moltis/gateway/internal/providerregistry"
	"github.com/moltis/gateway/internal/sandbox"
	"github.com/moltis/gateway/internal/voice"
)

// Deps bundles every collaborator the registration groups below wire into
// handlers (§4.6's "handles to services"). cmd/moltisgw builds one Deps at
// startup and passes it to RegisterAll.
type Deps struct {
	Log *zap.Logger

	Gateway     *gwstate.Gateway
	Broadcaster *broadcast.Broadcaster
	Pairing     *pairing.Registry
	Hooks       *hooks.Registry
	Cron        *cron.Scheduler
	Channels    *channels.Registry
	Sandbox     *sandbox.Overrides
	Voice       *voice.Manager
	Rebuilder   *providerregistry.Rebuilder
	Credentials *credentials.HomeStore
	Prober      providerregistry.Prober
	Projects    ProjectLookup
	Worktrees   WorktreeProvisioner
}

// log returns Deps.Log, falling back to a no-op logger so handlers never
// need to nil-check it themselves.
func (d Deps) log() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// RegisterAll installs every handler group onto reg. Handlers whose
// collaborator is nil check for it when called (e.g. providers.validate_key
// answers unavailable when no Prober is wired) rather than panicking.
func RegisterAll(reg *Registry, d Deps) {
	registerCore(reg, d)
	registerNode(reg, d)
	registerPairing(reg, d)
	registerProviders(reg, d)
	registerSessions(reg, d)
	registerHeartbeat(reg, d)
	registerHooks(reg, d)
	registerCron(reg, d)
	registerChannels(reg, d)
	registerVoice(reg, d)
}
