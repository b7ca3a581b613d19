package dialogue

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"genesis/internal/history"
	"genesis/internal/intent"
	"genesis/internal/sentiment"
)

// Motion tokens for the hardware link's posture channel.
const (
	MotionNeutral = "HeadYaw:0"
	MotionAck     = "HeadNod"
	MotionThink   = "BodyLanguage:Think"
	MotionJoy     = "BodyLanguage:Joy"
)

const motionSpeed = 0.8

// ActionPlan is one turn's output: speech text plus an optional motion
// token. Ephemeral, never persisted.
type ActionPlan struct {
	Speech string
	Motion string
}

// Output is the slice of the hardware surface the engine drives.
type Output interface {
	Say(text string) error
	GoToPosture(posture string, speed float64) error
}

// Engine plans and executes a turn's output channels. Speech and motion
// start together and the turn ends when every started channel reports
// complete.
type Engine struct {
	mgr      *Manager
	resolver intent.Resolver
	mood     *sentiment.Analyzer
	out      Output
	history  *history.Logger
	log      *zap.Logger
}

// NewEngine builds the planner half of the orchestration pair. Call
// mgr.BindEngine(engine) afterwards to close the loop.
func NewEngine(mgr *Manager, resolver intent.Resolver, out Output, hist *history.Logger, log *zap.Logger) *Engine {
	return &Engine{
		mgr:      mgr,
		resolver: resolver,
		mood:     sentiment.New(),
		out:      out,
		history:  hist,
		log:      log.Named("engine"),
	}
}

// ProcessUserSpeech runs one full turn for a recognized utterance and
// returns the final spoken reply. Output failures are caught here and
// surface as a generic apology; they never propagate to the caller.
func (e *Engine) ProcessUserSpeech(ctx context.Context, text string) string {
	plan := e.plan(ctx, text)
	if plan.Speech == "" {
		plan = ActionPlan{Speech: FallbackReply, Motion: MotionNeutral}
	}

	if err := e.execute(plan); err != nil {
		e.log.Error("output execution failed",
			zap.String("speech", plan.Speech), zap.String("motion", plan.Motion), zap.Error(err))
		return sentiment.Apology(fmt.Errorf("output failed"))
	}

	if e.history != nil {
		e.history.RecordExchange(text, plan.Speech)
	}
	return plan.Speech
}

// plan resolves the utterance into speech plus a motion token. Simple
// informational intents skip the orchestrator; command intents get an
// acknowledgment motion; everything else is a reasoning turn with a
// thinking motion.
func (e *Engine) plan(ctx context.Context, text string) ActionPlan {
	res := e.resolver.Resolve(text)

	switch res.Intent {
	case intent.TellTime, intent.TellDate:
		return ActionPlan{
			Speech: e.mgr.runHandler(ctx, res, e.mgr.handlers[res.Intent]),
			Motion: MotionNeutral,
		}

	case intent.ChangePersonality, intent.ChangeTone, intent.SetReminder:
		motion := MotionAck
		if e.mood.MoodOf(text) == sentiment.MoodPositive {
			motion = MotionJoy
		}
		return ActionPlan{Speech: e.mgr.ProcessTurn(ctx, text), Motion: motion}

	default:
		return ActionPlan{Speech: e.mgr.ProcessTurn(ctx, text), Motion: MotionThink}
	}
}

// execute starts the speech channel and, for a non-empty motion token,
// the motion channel concurrently, then waits for every started channel
// to report complete. Say blocks for the full speech duration, so a long
// reply is a long turn, not a failure.
func (e *Engine) execute(plan ActionPlan) error {
	var g errgroup.Group
	g.Go(func() error { return e.out.Say(plan.Speech) })
	if plan.Motion != "" {
		g.Go(func() error { return e.out.GoToPosture(plan.Motion, motionSpeed) })
	}
	return g.Wait()
}
