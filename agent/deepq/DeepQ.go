// Package deepq implements the deep Q-learning agent with experience
// replay, an exponentially annealed epsilon greedy behaviour policy,
// and a target network tracked by Polyak averaging.
package deepq

import (
	"fmt"

	"github.com/pixelrl/pixeldqn/agent/policy"
	"github.com/pixelrl/pixeldqn/expreplay"
	"github.com/pixelrl/pixeldqn/network"
	ts "github.com/pixelrl/pixeldqn/timestep"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DeepQ implements the deep Q-learning algorithm with the MSE loss.
//
// Three networks are kept. The train network takes batches of states,
// has its gradient computed, and holds the online weights. The policy
// network is a batch 1 copy of the online weights used only to select
// actions. The target network takes batches of next states and
// provides the bootstrapped update target. It never has a gradient
// computed and moves toward the online weights only through
// SoftUpdate.
type DeepQ struct {
	// Batch 1 copy of the online network for action selection
	policyNet network.QNetwork
	policyVM  G.VM

	// Online network whose weights are adapted
	trainNet network.QNetwork
	trainVM  G.VM
	solver   G.Solver

	// Network that provides the update target
	targetNet network.QNetwork
	targetVM  G.VM

	// nextStateActionValues is the input node in the graph of trainNet
	// that is given the action values of the next states computed by
	// targetNet. The update target is:
	//
	//	r + discount * max[Q(s', a')]
	//
	// where discount is γ, or γ(1 - done) when terminal bootstraps are
	// masked.
	nextStateActionValues *G.Node
	rewards               *G.Node
	discounts             *G.Node
	selectedActions       *G.Node // One-hot actions taken in the states
	lossVal               G.Value

	memory   *expreplay.Memory
	egreedy  *policy.EGreedy
	schedule policy.Schedule

	stateShape []int
	stateSize  int
	numActions int
	batchSize  int
	gamma      float64
	tau        float64
	mask       bool

	steps      int  // Number of calls to ChooseAction
	trainCalls int  // Number of calls to Train
	eval       bool // Whether or not in evaluation mode
}

// New creates and returns a new DeepQ agent acting on states of shape
// stateShape = [H, W, C] with numActions discrete actions.
func New(stateShape []int, numActions int, config Config,
	seed uint64) (*DeepQ, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	batchSize := config.BatchSize

	vmOpts, err := config.Network.Device.VMOpts()
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	// Create a training network which learns the weights
	gTrain := G.NewGraph()
	trainNet, err := network.NewConvQNet(stateShape, numActions, batchSize,
		gTrain, config.Network)
	if err != nil {
		return nil, fmt.Errorf("new: could not create learning network: %w",
			err)
	}

	// Policy network for selecting a single action
	policyNet, err := trainNet.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy network: %v",
			err)
	}

	// Create the target network which provides the update target
	var targetNet network.QNetwork
	if config.InitTargetFromOnline {
		targetNet, err = trainNet.CloneWithBatch(batchSize)
	} else {
		targetNet, err = network.NewConvQNet(stateShape, numActions,
			batchSize, G.NewGraph(), config.Network)
	}
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}

	// Create nodes to compute the update target: r + γ * max[Q(s', a')]
	nextStateActionValues := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("targetActionVals"))
	rewards := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("reward"))
	discounts := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("discount"))

	updateTarget := G.Must(G.Max(nextStateActionValues, 1))
	updateTarget = G.Must(G.HadamardProd(updateTarget, discounts))
	updateTarget = G.Must(G.Add(updateTarget, rewards))

	// Actions taken in the sampled states as one-hot rows. The network
	// outputs one value per action, so the mask gathers the value of
	// the action that was taken.
	selectedActions := G.NewMatrix(
		gTrain,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(batchSize, numActions),
	)
	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the Mean Squarred TD error
	losses := G.Must(G.Sub(updateTarget, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	d := &DeepQ{
		policyNet:             policyNet,
		trainNet:              trainNet,
		solver:                config.Solver.Solver,
		targetNet:             targetNet,
		nextStateActionValues: nextStateActionValues,
		rewards:               rewards,
		discounts:             discounts,
		selectedActions:       selectedActions,
		schedule:              config.Epsilon,
		stateShape:            append([]int{}, stateShape...),
		stateSize:             tensor.Shape(stateShape).TotalSize(),
		numActions:            numActions,
		batchSize:             batchSize,
		gamma:                 config.Gamma,
		tau:                   config.Tau,
		mask:                  config.MaskTerminalBootstrap,
	}
	G.Read(cost, &d.lossVal)

	// Compute the gradient with respect to the Mean Squarred TD error
	if _, err = G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}

	d.trainVM = G.NewTapeMachine(
		gTrain,
		append(vmOpts, G.BindDualValues(trainNet.Learnables()...))...,
	)
	d.policyVM = G.NewTapeMachine(policyNet.Graph(), vmOpts...)
	d.targetVM = G.NewTapeMachine(targetNet.Graph(), vmOpts...)

	if d.memory, err = config.ExpReplay.Create(seed); err != nil {
		return nil, fmt.Errorf("new: could not create experience replay "+
			"buffer: %v", err)
	}

	if d.egreedy, err = policy.NewEGreedy(numActions, seed+1); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return d, nil
}

// ChooseAction selects an action in state using the epsilon greedy
// behaviour policy. The exploration rate is computed from the number
// of previous calls, after which the count is incremented. In
// evaluation mode the greedy action is always selected.
func (d *DeepQ) ChooseAction(state *tensor.Dense) (int, error) {
	state = materialize(state)
	if err := checkState("chooseaction", state, d.stateShape); err != nil {
		return 0, err
	}

	eps := d.EpsThreshold()
	if d.eval {
		eps = 0
	}
	d.steps++

	if action, ok := d.egreedy.Explore(eps); ok {
		return action, nil
	}

	values, err := d.actionValues(state)
	if err != nil {
		return 0, fmt.Errorf("chooseaction: %v", err)
	}
	return policy.Greedy(values), nil
}

// ActionValues returns the online network's action values in state
func (d *DeepQ) ActionValues(state *tensor.Dense) ([]float64, error) {
	state = materialize(state)
	if err := checkState("actionvalues", state, d.stateShape); err != nil {
		return nil, err
	}
	values, err := d.actionValues(state)
	if err != nil {
		return nil, fmt.Errorf("actionvalues: %v", err)
	}
	return values, nil
}

func (d *DeepQ) actionValues(state *tensor.Dense) ([]float64, error) {
	defer d.policyVM.Reset()

	if err := d.policyNet.SetInput(flatData(state)); err != nil {
		return nil, err
	}
	if err := d.policyVM.RunAll(); err != nil {
		return nil, fmt.Errorf("could not run policy network: %v", err)
	}

	values := d.policyNet.Output().Data().([]float64)
	return append([]float64{}, values...), nil
}

// Store records a transition in the replay memory. The state tensors
// are copied so the caller may reuse them.
func (d *DeepQ) Store(state *tensor.Dense, action int, reward float64,
	nextState *tensor.Dense, done bool) error {
	state, nextState = materialize(state), materialize(nextState)
	if err := checkState("store", state, d.stateShape); err != nil {
		return err
	}
	if err := checkState("store", nextState, d.stateShape); err != nil {
		return err
	}
	if action < 0 || action >= d.numActions {
		return fmt.Errorf("store: action out of range\n\twant([0, %v))"+
			"\n\thave(%v)", d.numActions, action)
	}

	d.memory.Push(ts.NewTransition(state, action, reward, nextState, done))
	return nil
}

// Train performs one gradient step on a batch sampled from the replay
// memory and returns the loss on that batch. Until the memory holds a
// full batch, Train returns a loss of 0 and does not change any
// weights.
//
// Non-finite losses are returned as is.
func (d *DeepQ) Train() (float64, error) {
	d.trainCalls++
	if d.memory.Len() < d.batchSize {
		return 0, nil
	}

	batch, err := d.memory.Sample(d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("train: %w", err)
	}

	states := make([]float64, 0, d.batchSize*d.stateSize)
	nextStates := make([]float64, 0, d.batchSize*d.stateSize)
	actions := make([]float64, d.batchSize*d.numActions)
	rewards := make([]float64, d.batchSize)
	discounts := make([]float64, d.batchSize)
	for i, t := range batch {
		states = append(states, flatData(t.State)...)
		nextStates = append(nextStates, flatData(t.NextState)...)
		actions[i*d.numActions+t.Action] = 1.0
		rewards[i] = t.Reward

		discounts[i] = d.gamma
		if d.mask {
			discounts[i] *= 1 - t.DoneFloat()
		}
	}

	// Compute the next state-action values
	if err := d.targetNet.SetInput(nextStates); err != nil {
		return 0, fmt.Errorf("train: could not set target net input: %v",
			err)
	}
	if err := d.targetVM.RunAll(); err != nil {
		d.targetVM.Reset()
		return 0, fmt.Errorf("train: could not run target network: %v", err)
	}
	nextValues, err := G.CloneValue(d.targetNet.Output())
	d.targetVM.Reset()
	if err != nil {
		return 0, fmt.Errorf("train: could not copy target values: %v", err)
	}

	lets := []struct {
		node  *G.Node
		value G.Value
	}{
		{d.nextStateActionValues, nextValues},
		{d.selectedActions, tensor.New(
			tensor.WithShape(d.batchSize, d.numActions),
			tensor.WithBacking(actions),
		)},
		{d.rewards, tensor.New(
			tensor.WithShape(d.batchSize),
			tensor.WithBacking(rewards),
		)},
		{d.discounts, tensor.New(
			tensor.WithShape(d.batchSize),
			tensor.WithBacking(discounts),
		)},
	}
	for _, l := range lets {
		if err := G.Let(l.node, l.value); err != nil {
			return 0, fmt.Errorf("train: could not set %v: %v", l.node.Name(),
				err)
		}
	}
	if err := d.trainNet.SetInput(states); err != nil {
		return 0, fmt.Errorf("train: could not set train net input: %v", err)
	}

	// Run the learning step
	defer d.trainVM.Reset()
	if err := d.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("train: could not run train network: %v", err)
	}
	loss := d.lossVal.Data().(float64)

	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		return 0, fmt.Errorf("train: could not step solver: %v", err)
	}

	if err := d.policyNet.Set(d.trainNet); err != nil {
		return 0, fmt.Errorf("train: could not update policy network: %v",
			err)
	}

	return loss, nil
}

// SoftUpdate moves the target network's weights toward the online
// network's weights by tau. Train never calls SoftUpdate.
func (d *DeepQ) SoftUpdate(tau float64) error {
	return SoftUpdate(d.trainNet, d.targetNet, tau)
}

// SoftUpdate sets every weight of target to
// tau * local + (1 - tau) * target. With tau = 1 the target becomes an
// exact copy of local.
func SoftUpdate(local, target network.QNetwork, tau float64) error {
	if tau <= 0 || tau > 1 {
		return fmt.Errorf("softupdate: tau must be in (0, 1]\n\thave(%v)",
			tau)
	}
	if err := target.Polyak(local, tau); err != nil {
		return fmt.Errorf("softupdate: %v", err)
	}
	return nil
}

// EpsThreshold returns the exploration rate that the next call to
// ChooseAction will use in training mode
func (d *DeepQ) EpsThreshold() float64 {
	return d.schedule.At(d.steps)
}

// EpsilonAt returns the exploration rate after steps actions
func (d *DeepQ) EpsilonAt(steps int) float64 {
	return d.schedule.At(steps)
}

// Steps returns the number of calls to ChooseAction
func (d *DeepQ) Steps() int {
	return d.steps
}

// TrainCalls returns the number of calls to Train, including those
// made before the memory held a full batch
func (d *DeepQ) TrainCalls() int {
	return d.trainCalls
}

// Tau returns the configured soft update constant
func (d *DeepQ) Tau() float64 {
	return d.tau
}

// MemoryLen returns the number of stored transitions
func (d *DeepQ) MemoryLen() int {
	return d.memory.Len()
}

// Memory returns the agent's replay memory
func (d *DeepQ) Memory() *expreplay.Memory {
	return d.memory
}

// BatchSize returns the number of transitions per training step
func (d *DeepQ) BatchSize() int {
	return d.batchSize
}

// NumActions returns the number of actions the agent chooses between
func (d *DeepQ) NumActions() int {
	return d.numActions
}

// StateShape returns the [H, W, C] shape of states
func (d *DeepQ) StateShape() []int {
	return append([]int{}, d.stateShape...)
}

// Eval sets the agent into evaluation mode
func (d *DeepQ) Eval() {
	d.eval = true
}

// Explore sets the agent into training mode
func (d *DeepQ) Explore() {
	d.eval = false
}

// IsEval returns whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.eval
}

// Close releases the resources held by the agent's VMs
func (d *DeepQ) Close() error {
	for _, vm := range []G.VM{d.policyVM, d.trainVM, d.targetVM} {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}
