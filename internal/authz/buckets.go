package authz

// Method buckets, ported verbatim from the original gateway's method tables
// (§4.4). Every method falls into exactly one bucket.

var nodeMethods = set(
	"node.invoke.result", "node.event", "skills.bins",
)

var readMethods = set(
	"health", "logs.tail", "logs.list", "logs.status",
	"channels.status", "channels.list", "channels.senders.list",
	"status", "usage.status", "usage.cost",
	"tts.status", "tts.providers", "stt.status", "stt.providers",
	"models.list", "agents.list", "agent.identity.get",
	"skills.list", "skills.status", "skills.security.status",
	"skills.repos.list", "skills.security.scan",
	"voicewake.get",
	"sessions.list", "sessions.preview", "sessions.search", "sessions.branches",
	"projects.list", "projects.get", "projects.context", "projects.complete_path",
	"cron.list", "cron.status", "cron.runs",
	"heartbeat.status", "heartbeat.runs",
	"system-presence", "last-heartbeat",
	"node.list", "node.describe",
	"chat.history", "chat.context",
	"providers.available", "providers.oauth.status",
	"providers.local.system_info", "providers.local.models", "providers.local.status",
	"providers.local.search_hf",
	"mcp.list", "mcp.status", "mcp.tools",
	"voice.config.get", "voice.config.voxtral_requirements",
	"voice.providers.all", "voice.elevenlabs.catalog",
	"memory.status", "memory.config.get", "memory.qmd.status",
	"hooks.list",
)

var writeMethods = set(
	"send", "agent", "agent.wait",
	"agent.identity.update", "agent.identity.update_soul",
	"wake", "talk.mode",
	"tts.enable", "tts.disable", "tts.convert", "tts.setProvider",
	"stt.transcribe", "stt.setProvider",
	"voicewake.set",
	"node.invoke",
	"chat.send", "chat.abort", "chat.clear", "chat.compact",
	"browser.request",
	"logs.ack",
	"providers.save_key", "providers.remove_key",
	"providers.oauth.start", "providers.oauth.complete",
	"providers.local.configure", "providers.local.configure_custom",
	"channels.add", "channels.remove", "channels.update",
	"channels.senders.approve", "channels.senders.deny",
	"sessions.switch", "sessions.fork",
	"projects.upsert", "projects.delete", "projects.detect",
	"skills.install", "skills.remove", "skills.repos.remove",
	"skills.emergency_disable",
	"skills.skill.trust", "skills.skill.enable", "skills.skill.disable",
	"skills.install_dep",
	"mcp.add", "mcp.remove", "mcp.enable", "mcp.disable", "mcp.restart", "mcp.update",
	"cron.add", "cron.update", "cron.remove", "cron.run",
	"heartbeat.update", "heartbeat.run",
	"voice.config.save_key", "voice.config.save_settings", "voice.config.remove_key",
	"voice.provider.toggle",
	"voice.override.session.set", "voice.override.session.clear",
	"voice.override.channel.set", "voice.override.channel.clear",
	"memory.config.update",
	"hooks.enable", "hooks.disable", "hooks.save", "hooks.reload",
)

var approvalMethods = set(
	"exec.approval.request", "exec.approval.resolve",
)

var pairingMethods = set(
	"node.pair.request", "node.pair.list", "node.pair.approve", "node.pair.reject",
	"node.pair.verify",
	"device.pair.list", "device.pair.approve", "device.pair.reject",
	"device.token.rotate", "device.token.revoke",
	"node.rename",
)

func set(methods ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(methods))
	for _, name := range methods {
		m[name] = struct{}{}
	}
	return m
}

func isIn(method string, bucket map[string]struct{}) bool {
	_, ok := bucket[method]
	return ok
}
