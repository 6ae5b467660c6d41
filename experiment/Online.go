package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelrl/pixeldqn/agent"
	env "github.com/pixelrl/pixeldqn/environment"
	"github.com/pixelrl/pixeldqn/experiment/checkpointer"
	"github.com/pixelrl/pixeldqn/experiment/tracker"
)

// Online is an Experiment that trains an agent online: the agent
// stores every transition it sees and learns from its replay memory
// between environment steps.
type Online struct {
	env.Environment
	agent.Agent
	config Config

	episode    int // Episodes finished, including resumed episodes
	trainCalls int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The t parameter determines which
// data is tracked and the check parameter determines when the agent
// is checkpointed.
func NewOnline(e env.Environment, a agent.Agent, c Config,
	t []tracker.Tracker, check []checkpointer.Checkpointer) (*Online, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newOnline: %v", err)
	}
	if e == nil || a == nil {
		return nil, fmt.Errorf("newOnline: environment and agent must be " +
			"non-nil")
	}

	return &Online{
		Environment:   e,
		Agent:         a,
		config:        c,
		trackers:      t,
		checkpointers: check,
	}, nil
}

// Register registers a tracker.Tracker with an Experiment so that
// data generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// Episode returns the number of finished episodes
func (o *Online) Episode() int {
	return o.episode
}

// SetEpisode sets the number of finished episodes, used when resuming
// an experiment from a checkpoint
func (o *Online) SetEpisode(episode int) {
	o.episode = episode
}

// SetTrainCalls sets the number of training calls made so far, used
// when resuming an experiment so that target updates keep their
// cadence
func (o *Online) SetTrainCalls(calls int) {
	o.trainCalls = calls
}

// TrainCalls returns the number of training calls made so far
func (o *Online) TrainCalls() int {
	return o.trainCalls
}

// RunEpisode runs a single episode of the experiment and returns its
// Record. Every TrainPeriod steps the agent is trained, and every
// TargetUpdatePeriod training calls its target network is soft
// updated. If ctx is cancelled the episode is abandoned between steps
// and is not recorded.
func (o *Online) RunEpisode(ctx context.Context) (tracker.Record, error) {
	start := time.Now()

	step, err := o.Environment.Reset()
	if err != nil {
		return tracker.Record{}, fmt.Errorf("runEpisode: could not reset "+
			"environment: %v", err)
	}
	state := step.Observation
	if state == nil {
		return tracker.Record{}, fmt.Errorf("runEpisode: environment " +
			"does not produce observation tensors")
	}

	var totalReward, totalLoss float64
	n := 0
	for o.config.MaxSteps == 0 || n < o.config.MaxSteps {
		if err := ctx.Err(); err != nil {
			return tracker.Record{}, err
		}
		n++

		// Select action, step in environment
		action, err := o.Agent.ChooseAction(state)
		if err != nil {
			return tracker.Record{}, fmt.Errorf("runEpisode: %v", err)
		}
		next, done, err := o.Environment.Step(action)
		if err != nil {
			return tracker.Record{}, fmt.Errorf("runEpisode: could not "+
				"step environment: %v", err)
		}

		err = o.Agent.Store(state, action, next.Reward, next.Observation,
			done)
		if err != nil {
			return tracker.Record{}, fmt.Errorf("runEpisode: %v", err)
		}

		if n%o.config.TrainPeriod == 0 {
			if err := o.train(&totalLoss); err != nil {
				return tracker.Record{}, fmt.Errorf("runEpisode: %v", err)
			}
		}

		totalReward += next.Reward
		state = next.Observation
		if done {
			break
		}
	}
	o.episode++

	record := tracker.Record{
		Episode:     o.episode,
		TotalReward: totalReward,
		TotalLoss:   totalLoss,
		Steps:       n,
		MemorySize:  o.Agent.MemoryLen(),
		Epsilon:     o.Agent.EpsThreshold(),
		Duration:    time.Since(start),
	}
	o.track(record)

	for _, c := range o.checkpointers {
		if err := c.Checkpoint(ctx, o.episode, n); err != nil {
			return record, fmt.Errorf("runEpisode: %v", err)
		}
	}

	return record, nil
}

// train performs a single training step, accumulating the loss
func (o *Online) train(totalLoss *float64) error {
	loss, err := o.Agent.Train()
	if err != nil {
		return err
	}
	*totalLoss += loss
	o.trainCalls++

	period := o.config.TargetUpdatePeriod
	if period > 0 && o.trainCalls%period == 0 {
		return o.Agent.SoftUpdate(o.Agent.Tau())
	}
	return nil
}

// Run runs the experiment until the configured number of episodes
// have finished, then checkpoints the agent a final time
func (o *Online) Run(ctx context.Context) error {
	var last tracker.Record
	for o.episode < o.config.Episodes {
		record, err := o.RunEpisode(ctx)
		if err != nil {
			return err
		}
		last = record
	}

	for _, c := range o.checkpointers {
		if err := c.Save(ctx, o.episode, last.Steps); err != nil {
			return fmt.Errorf("run: %v", err)
		}
	}
	return nil
}

// Evaluate runs episodes greedily, without storing transitions or
// training, and returns the return of each episode. The agent is
// returned to its previous mode afterwards.
func (o *Online) Evaluate(ctx context.Context, episodes int) ([]float64,
	error) {
	if !o.Agent.IsEval() {
		o.Agent.Eval()
		defer o.Agent.Explore()
	}

	returns := make([]float64, 0, episodes)
	for i := 0; i < episodes; i++ {
		step, err := o.Environment.Reset()
		if err != nil {
			return returns, fmt.Errorf("evaluate: could not reset "+
				"environment: %v", err)
		}

		var ret float64
		for n := 0; o.config.MaxSteps == 0 || n < o.config.MaxSteps; n++ {
			if err := ctx.Err(); err != nil {
				return returns, err
			}

			action, err := o.Agent.ChooseAction(step.Observation)
			if err != nil {
				return returns, fmt.Errorf("evaluate: %v", err)
			}

			var done bool
			step, done, err = o.Environment.Step(action)
			if err != nil {
				return returns, fmt.Errorf("evaluate: could not step "+
					"environment: %v", err)
			}
			ret += step.Reward
			if done {
				break
			}
		}
		returns = append(returns, ret)
	}

	return returns, nil
}

// Save saves the data tracked by all Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return err
		}
	}
	return nil
}

// track sends the episode Record to each Tracker
func (o *Online) track(r tracker.Record) {
	for _, t := range o.trackers {
		t.Track(r)
	}
}
