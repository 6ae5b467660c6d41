package deepq

import (
	"errors"
	"math"
	"testing"

	"github.com/pixelrl/pixeldqn/agent/policy"
	"github.com/pixelrl/pixeldqn/expreplay"
	"github.com/pixelrl/pixeldqn/initwfn"
	"github.com/pixelrl/pixeldqn/network"
	"github.com/pixelrl/pixeldqn/solver"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var stateShape = []int{20, 20, 4}

const numActions = 3

func testConfig(t testing.TB, capacity, batch int, biases bool) Config {
	init, err := initwfn.NewHeN(1.0, 1)
	require.NoError(t, err)

	rmsprop, err := solver.NewRMSProp(1e-3, 1e-8, 0.99, 1, -1)
	require.NoError(t, err)

	net := network.ConvConfig{
		Filters:    []int{4, 8},
		Kernels:    []int{8, 4},
		Strides:    []int{4, 2},
		Hidden:     []int{16},
		Activation: network.ReLU(),
		InitWFn:    init,
		Device:     network.CPU,
	}
	if !biases {
		net.Biases = []bool{false, false, false, false}
	}

	return Config{
		Gamma:     0.99,
		Tau:       0.001,
		Epsilon:   policy.Schedule{Start: 0.9, End: 0.05, Decay: 500},
		BatchSize: batch,
		ExpReplay: expreplay.Config{
			SampleMethod: expreplay.Uniform,
			Capacity:     capacity,
		},
		Solver:  rmsprop,
		Network: net,
	}
}

func newAgent(t testing.TB, c Config) *DeepQ {
	d, err := New(stateShape, numActions, c, 42)
	require.NoError(t, err)
	return d
}

func randomState(rng *rand.Rand) *tensor.Dense {
	data := make([]float64, 20*20*4)
	for i := range data {
		data[i] = rng.Float64()
	}
	return tensor.New(tensor.WithShape(stateShape...), tensor.WithBacking(data))
}

func constantState(v float64) *tensor.Dense {
	data := make([]float64, 20*20*4)
	for i := range data {
		data[i] = v
	}
	return tensor.New(tensor.WithShape(stateShape...), tensor.WithBacking(data))
}

func changed(before, after [][]float64) int {
	n := 0
	for i := range before {
		for j := range before[i] {
			if before[i][j] != after[i][j] {
				n++
				break
			}
		}
	}
	return n
}

func TestTrainBeforeWarmup(t *testing.T) {
	d := newAgent(t, testConfig(t, 10, 4, true))
	defer d.Close()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Store(randomState(rng), i%numActions, float64(i),
			randomState(rng), false))
	}

	before := d.trainNet.Weights()
	loss, err := d.Train()
	require.NoError(t, err)
	require.Equal(t, 0.0, loss)
	require.Equal(t, before, d.trainNet.Weights())
}

func TestTrainEndToEnd(t *testing.T) {
	d := newAgent(t, testConfig(t, 10, 4, false))
	defer d.Close()
	require.Len(t, d.trainNet.Learnables(), 4)

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Store(randomState(rng), i%numActions, float64(i),
			randomState(rng), i == 9))
	}
	require.Equal(t, 10, d.MemoryLen())

	online := d.trainNet.Weights()
	target := d.targetNet.Weights()

	loss, err := d.Train()
	require.NoError(t, err)
	require.False(t, math.IsNaN(loss) || math.IsInf(loss, 0))
	require.Greater(t, loss, 0.0)

	require.Equal(t, 4, changed(online, d.trainNet.Weights()))
	require.Equal(t, target, d.targetNet.Weights())
	require.Equal(t, d.trainNet.Weights(), d.policyNet.Weights())
}

func TestTrainTerminalMasking(t *testing.T) {
	rewards := []float64{1, 2, 3, 4}

	run := func(mask bool) float64 {
		c := testConfig(t, 4, 4, false)
		c.MaskTerminalBootstrap = mask
		d := newAgent(t, c)
		defer d.Close()

		// Online values are all zero, target values are all positive
		zeros := d.trainNet.Weights()
		positive := d.targetNet.Weights()
		for i := range zeros {
			for j := range zeros[i] {
				zeros[i][j] = 0
				positive[i][j] = 0.01
			}
		}
		require.NoError(t, d.trainNet.SetWeights(zeros))
		require.NoError(t, d.targetNet.SetWeights(positive))

		for i, r := range rewards {
			require.NoError(t, d.Store(constantState(1), i%numActions, r,
				constantState(1), true))
		}

		loss, err := d.Train()
		require.NoError(t, err)
		return loss
	}

	// (1 + 4 + 9 + 16) / 4
	require.InDelta(t, 7.5, run(true), 1e-9)
	require.Greater(t, run(false), 7.5+1e-6)
}

// TestTrainBellmanTarget recomputes the loss of one training step
// from the online and target action values of each transition
func TestTrainBellmanTarget(t *testing.T) {
	actions := []int{2, 0, 1, 2}
	rewards := []float64{1, -0.5, 2, 0.25}
	dones := []bool{false, true, false, true}

	run := func(mask bool) {
		c := testConfig(t, 4, 4, true)
		c.ExpReplay.SampleMethod = expreplay.Fifo
		c.MaskTerminalBootstrap = mask
		d := newAgent(t, c)
		defer d.Close()

		target, err := d.targetNet.CloneWithBatch(1)
		require.NoError(t, err)
		vm := G.NewTapeMachine(target.Graph())
		defer vm.Close()
		targetValues := func(s *tensor.Dense) []float64 {
			defer vm.Reset()
			require.NoError(t, target.SetInput(s.Data().([]float64)))
			require.NoError(t, vm.RunAll())
			return append([]float64{}, target.Output().Data().([]float64)...)
		}

		rng := rand.New(rand.NewSource(11))
		var want float64
		for i := range actions {
			state, next := randomState(rng), randomState(rng)

			values, err := d.ActionValues(state)
			require.NoError(t, err)
			discount := c.Gamma
			if mask && dones[i] {
				discount = 0
			}
			delta := rewards[i] + discount*floats.Max(targetValues(next)) -
				values[actions[i]]
			want += delta * delta / float64(len(actions))

			require.NoError(t, d.Store(state, actions[i], rewards[i], next,
				dones[i]))
		}

		loss, err := d.Train()
		require.NoError(t, err)
		require.InDelta(t, want, loss, 1e-9)
	}

	run(false)
	run(true)
}

func TestStoreSlicedView(t *testing.T) {
	d := newAgent(t, testConfig(t, 10, 4, true))
	defer d.Close()

	// Views of the first 4 channels of 8 channel frames
	rng := rand.New(rand.NewSource(10))
	view := func() *tensor.Dense {
		data := make([]float64, 20*20*8)
		for i := range data {
			data[i] = rng.Float64()
		}
		wide := tensor.New(tensor.WithShape(20, 20, 8),
			tensor.WithBacking(data))
		v, err := wide.Slice(nil, nil, G.S(0, 4))
		require.NoError(t, err)
		return v.(*tensor.Dense)
	}

	state := view()
	require.True(t, state.IsView())
	dense := state.Materialize().(*tensor.Dense)

	fromView, err := d.ActionValues(state)
	require.NoError(t, err)
	fromDense, err := d.ActionValues(dense)
	require.NoError(t, err)
	require.Equal(t, fromDense, fromView)

	require.NoError(t, d.Store(state, 0, 1, view(), false))
	for i := 1; i < 4; i++ {
		require.NoError(t, d.Store(view(), i%numActions, 1, view(), false))
	}

	stored := d.Memory().Transitions()
	require.Equal(t, dense.Data(), stored[0].State.Data())
	for _, tr := range stored {
		require.Len(t, tr.State.Data(), 20*20*4)
		require.Len(t, tr.NextState.Data(), 20*20*4)
	}

	_, err = d.Train()
	require.NoError(t, err)
}

func TestTrainBatchFromConfig(t *testing.T) {
	d := newAgent(t, testConfig(t, 20, 7, true))
	defer d.Close()

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 12; i++ {
		require.NoError(t, d.Store(randomState(rng), i%numActions, 1,
			randomState(rng), false))
	}

	for i := 0; i < 3; i++ {
		loss, err := d.Train()
		require.NoError(t, err)
		require.GreaterOrEqual(t, loss, 0.0)
	}
}

func TestChooseActionBounds(t *testing.T) {
	d := newAgent(t, testConfig(t, 10, 4, true))
	defer d.Close()

	state := randomState(rand.New(rand.NewSource(4)))
	for i := 0; i < 10000; i++ {
		a, err := d.ChooseAction(state)
		require.NoError(t, err)
		require.GreaterOrEqual(t, a, 0)
		require.Less(t, a, numActions)
	}
	require.Equal(t, 10000, d.Steps())
	require.InDelta(t, 0.05, d.EpsThreshold(), 1e-6)
}

func TestChooseActionUsesPreIncrementSteps(t *testing.T) {
	d := newAgent(t, testConfig(t, 10, 4, true))
	defer d.Close()

	require.Equal(t, 0.9, d.EpsThreshold())
	require.Equal(t, d.EpsilonAt(0), d.EpsThreshold())

	_, err := d.ChooseAction(randomState(rand.New(rand.NewSource(5))))
	require.NoError(t, err)
	require.Equal(t, 1, d.Steps())
	require.Equal(t, d.EpsilonAt(1), d.EpsThreshold())
}

func TestEvalIsGreedy(t *testing.T) {
	d := newAgent(t, testConfig(t, 10, 4, true))
	defer d.Close()

	state := randomState(rand.New(rand.NewSource(6)))
	values, err := d.ActionValues(state)
	require.NoError(t, err)
	require.Len(t, values, numActions)
	want := policy.Greedy(values)

	d.Eval()
	require.True(t, d.IsEval())
	for i := 0; i < 100; i++ {
		a, err := d.ChooseAction(state)
		require.NoError(t, err)
		require.Equal(t, want, a)
	}

	d.Explore()
	require.False(t, d.IsEval())
}

func TestShapeMismatch(t *testing.T) {
	d := newAgent(t, testConfig(t, 10, 4, true))
	defer d.Close()

	good := constantState(0)
	bad := tensor.New(tensor.WithShape(20, 20, 3),
		tensor.WithBacking(make([]float64, 20*20*3)))

	_, err := d.ChooseAction(bad)
	require.True(t, errors.Is(err, ErrShape))
	require.Equal(t, 0, d.Steps())

	err = d.Store(good, 0, 0, bad, false)
	require.True(t, errors.Is(err, ErrShape))

	err = d.Store(good, 0, 0, nil, false)
	require.True(t, errors.Is(err, ErrShape))

	err = d.Store(good, numActions, 0, good, false)
	require.Error(t, err)
	require.Equal(t, 0, d.MemoryLen())
}

func TestSoftUpdate(t *testing.T) {
	d := newAgent(t, testConfig(t, 10, 4, true))
	defer d.Close()
	require.NotEqual(t, d.trainNet.Weights(), d.targetNet.Weights())

	require.Error(t, d.SoftUpdate(0))
	require.Error(t, d.SoftUpdate(1.5))

	distance := func() float64 {
		var dist float64
		o, tg := d.trainNet.Weights(), d.targetNet.Weights()
		for i := range o {
			for j := range o[i] {
				dist += math.Abs(o[i][j] - tg[i][j])
			}
		}
		return dist
	}

	prev := distance()
	for i := 0; i < 20; i++ {
		require.NoError(t, d.SoftUpdate(0.5))
		dist := distance()
		require.Less(t, dist, prev)
		prev = dist
	}

	require.NoError(t, d.SoftUpdate(1))
	require.Equal(t, d.trainNet.Weights(), d.targetNet.Weights())
}

func TestInitTargetFromOnline(t *testing.T) {
	c := testConfig(t, 10, 4, true)
	c.InitTargetFromOnline = true
	d := newAgent(t, c)
	defer d.Close()

	require.Equal(t, d.trainNet.Weights(), d.targetNet.Weights())
}

func TestSnapshotRestore(t *testing.T) {
	c := testConfig(t, 10, 4, true)
	src := newAgent(t, c)
	defer src.Close()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 6; i++ {
		s := randomState(rng)
		a, err := src.ChooseAction(s)
		require.NoError(t, err)
		require.NoError(t, src.Store(s, a, float64(i), randomState(rng), false))
	}
	_, err := src.Train()
	require.NoError(t, err)

	snap := src.Snapshot()
	require.Equal(t, 6, snap.Steps)
	require.Equal(t, src.EpsThreshold(), snap.Epsilon)
	require.Len(t, snap.Memory, 6)

	dst := newAgent(t, c)
	defer dst.Close()
	require.NoError(t, dst.Restore(snap))

	require.Equal(t, src.trainNet.Weights(), dst.trainNet.Weights())
	require.Equal(t, src.targetNet.Weights(), dst.targetNet.Weights())
	require.Equal(t, src.trainNet.Weights(), dst.policyNet.Weights())
	require.Equal(t, src.Steps(), dst.Steps())
	require.Equal(t, src.EpsThreshold(), dst.EpsThreshold())
	require.Equal(t, 6, dst.MemoryLen())
	require.Equal(t, 1, snap.TrainCalls)
	require.Equal(t, 1, dst.TrainCalls())

	snap.Online = snap.Online[1:]
	require.Error(t, dst.Restore(snap))
}

func TestRestoreInvalidLeavesAgent(t *testing.T) {
	c := testConfig(t, 10, 4, true)
	src := newAgent(t, c)
	defer src.Close()
	require.NoError(t, src.SoftUpdate(0.5))
	_, err := src.ChooseAction(constantState(1))
	require.NoError(t, err)

	dst := newAgent(t, c)
	defer dst.Close()
	online := dst.trainNet.Weights()
	target := dst.targetNet.Weights()

	snap := src.Snapshot()
	snap.Target = snap.Target[:len(snap.Target)-1]
	require.Error(t, dst.Restore(snap))

	snap = src.Snapshot()
	snap.Target[0] = snap.Target[0][1:]
	require.Error(t, dst.Restore(snap))

	require.Equal(t, online, dst.trainNet.Weights())
	require.Equal(t, online, dst.policyNet.Weights())
	require.Equal(t, target, dst.targetNet.Weights())
	require.Equal(t, 0, dst.Steps())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig(0).Validate())

	c := testConfig(t, 10, 4, true)
	c.Gamma = 0
	require.Error(t, c.Validate())

	c = testConfig(t, 10, 4, true)
	c.Tau = 2
	require.Error(t, c.Validate())

	c = testConfig(t, 3, 4, true)
	require.Error(t, c.Validate())

	c = testConfig(t, 10, 4, true)
	c.Solver = nil
	_, err := New(stateShape, numActions, c, 0)
	require.Error(t, err)
}

func BenchmarkChooseAction(b *testing.B) {
	c := testConfig(b, 10, 4, true)
	c.Epsilon = policy.Schedule{Start: 0, End: 0, Decay: 1}
	d := newAgent(b, c)
	defer d.Close()
	state := randomState(rand.New(rand.NewSource(8)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.ChooseAction(state); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTrain(b *testing.B) {
	d := newAgent(b, testConfig(b, 64, 32, true))
	defer d.Close()
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 64; i++ {
		if err := d.Store(randomState(rng), i%numActions, 1, randomState(rng),
			false); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Train(); err != nil {
			b.Fatal(err)
		}
	}
}

func TestRestoreRecomputesEpsilon(t *testing.T) {
	c := testConfig(t, 10, 4, true)
	d := newAgent(t, c)
	defer d.Close()

	snap := d.Snapshot()
	snap.Steps = 250
	snap.Epsilon = 0.75
	require.NoError(t, d.Restore(snap))
	require.Equal(t, 250, d.Steps())
	require.Equal(t, d.EpsilonAt(250), d.EpsThreshold())
	require.NotEqual(t, 0.75, d.EpsThreshold())
}
