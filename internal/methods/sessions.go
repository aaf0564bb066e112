package methods

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/moltis/gateway/internal/gwstate"
	"github.com/moltis/gateway/internal/protocol"
)

// Project is the narrow view sessions.switch needs of a project record to
// decide whether to run the auto_worktree sub-flow (§"sessions.switch").
// Concrete project persistence is an external collaborator; Worktree is
// reached only through the WorktreeProvisioner interface below.
type Project struct {
	ID            string
	AutoWorktree  bool
	BaseBranch    string
	BranchPrefix  string
	SetupCommand  string
}

// ProjectLookup resolves a project by id for sessions.switch's auto_worktree
// decision. A real deploy binds this to its project store.
type ProjectLookup interface {
	Get(ctx context.Context, projectID string) (Project, bool, error)
}

// WorktreeProvisioner performs the git-worktree side effects of
// auto_worktree. Every step is best-effort: failures are logged, never
// fatal to sessions.switch (§"sessions.switch").
type WorktreeProvisioner interface {
	ResolveBaseBranch(ctx context.Context, p Project) (string, error)
	CreateWorktree(ctx context.Context, p Project, branch string) error
	PatchSessionBranch(ctx context.Context, sessionKey, worktreeBranch string) error
	CopyConfig(ctx context.Context, p Project) error
	RunSetupCommand(ctx context.Context, p Project) error
}

// registerSessions installs sessions.switch.
func registerSessions(reg *Registry, d Deps) {
	reg.Register("sessions.switch", handleSessionsSwitch(d))
}

func handleSessionsSwitch(d Deps) Handler {
	return func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			SessionKey string `json:"session_key"`
			ProjectID  string `json:"project_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.SessionKey == "" {
			return nil, protocol.Invalidf("session_key is required")
		}

		d.Gateway.Sessions.Switch(rc.ConnID, p.SessionKey, p.ProjectID)

		if chat := d.Gateway.Chat(); chat != nil {
			if err := chat.Resolve(ctx, rc.ConnID, p.SessionKey); err != nil {
				return nil, protocol.Unavailablef("resolve session: %v", err)
			}
			if err := chat.MarkSeen(ctx, p.SessionKey); err != nil {
				d.log().Warn("mark_seen failed", zap.String("session_key", p.SessionKey), zap.Error(err))
			}
		}

		if p.ProjectID != "" {
			runAutoWorktree(ctx, d, p.SessionKey, p.ProjectID)
		}

		return sessionBindingPayload(d, rc.ConnID), nil
	}
}

// runAutoWorktree executes the project's auto_worktree sub-flow. Every
// sub-step is logged and non-fatal: a failure anywhere still leaves
// sessions.switch's response successful (§"sessions.switch").
func runAutoWorktree(ctx context.Context, d Deps, sessionKey, projectID string) {
	if d.Projects == nil || d.Worktrees == nil {
		return
	}
	log := d.log()

	project, ok, err := d.Projects.Get(ctx, projectID)
	if err != nil || !ok || !project.AutoWorktree {
		return
	}

	branch, err := d.Worktrees.ResolveBaseBranch(ctx, project)
	if err != nil {
		log.Warn("auto_worktree: resolve base branch failed", zap.Error(err))
		branch = project.BaseBranch
	}

	// No other creation path is tried when CreateWorktree fails; the steps
	// below still run.
	if err := d.Worktrees.CreateWorktree(ctx, project, branch); err != nil {
		log.Warn("auto_worktree: create worktree failed", zap.Error(err))
	}

	worktreeBranch := project.BranchPrefix + "/" + sessionKey
	if err := d.Worktrees.PatchSessionBranch(ctx, sessionKey, worktreeBranch); err != nil {
		log.Warn("auto_worktree: patch session branch failed", zap.Error(err))
	}

	if err := d.Worktrees.CopyConfig(ctx, project); err != nil {
		log.Warn("auto_worktree: copy config failed", zap.Error(err))
	}

	if project.SetupCommand != "" {
		if err := d.Worktrees.RunSetupCommand(ctx, project); err != nil {
			log.Warn("auto_worktree: setup_command failed", zap.Error(err))
		}
	}
}

func sessionBindingPayload(d Deps, connID string) map[string]any {
	binding := gwstate.SessionBinding{}
	if sk, ok := d.Gateway.Sessions.SessionKey(connID); ok {
		binding.SessionKey = sk
	}
	return map[string]any{
		"replying":     binding.Replying,
		"thinkingText": binding.ThinkingText,
		"voicePending": binding.VoicePending,
	}
}
