package checkpoint

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/pixelrl/pixeldqn/agent/deepq"
	ts "github.com/pixelrl/pixeldqn/timestep"
	"gorgonia.org/tensor"
)

// CodecVersion is the version of the encoding written by EncodeRecord
const CodecVersion = 1

// ErrVersionMismatch is returned when decoding a Record written with a
// different codec version
var ErrVersionMismatch = errors.New("record version mismatch")

// wireRecord is the gob encoded form of a Record. Tensors are stored
// as flat data with a shared state shape.
type wireRecord struct {
	CodecVersion int
	RunID        string
	Episode      int
	Step         int
	Time         time.Time

	Online     [][]float64
	Target     [][]float64
	Epsilon    float64
	Steps      int
	TrainCalls int
	StateShape []int
	Memory     []wireTransition
}

type wireTransition struct {
	State     []float64
	Action    int
	Reward    float64
	NextState []float64
	Done      bool
}

// EncodeRecord encodes a Record in gob format
func EncodeRecord(r Record) ([]byte, error) {
	w := wireRecord{
		CodecVersion: CodecVersion,
		RunID:        r.RunID,
		Episode:      r.Episode,
		Step:         r.Step,
		Time:         r.Time,
		Online:       r.Agent.Online,
		Target:       r.Agent.Target,
		Epsilon:      r.Agent.Epsilon,
		Steps:        r.Agent.Steps,
		TrainCalls:   r.Agent.TrainCalls,
		Memory:       make([]wireTransition, len(r.Agent.Memory)),
	}

	for i, t := range r.Agent.Memory {
		if t.State == nil || t.NextState == nil {
			return nil, fmt.Errorf("encodeRecord: transition %v has a nil "+
				"state", i)
		}
		if w.StateShape == nil {
			w.StateShape = []int(t.State.Shape().Clone())
		}
		state, ok1 := t.State.Data().([]float64)
		next, ok2 := t.NextState.Data().([]float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("encodeRecord: transition %v does not "+
				"hold float64 states", i)
		}
		w.Memory[i] = wireTransition{
			State:     state,
			Action:    t.Action,
			Reward:    t.Reward,
			NextState: next,
			Done:      t.Done,
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, fmt.Errorf("encodeRecord: %v", err)
	}
	return buf.Bytes(), nil
}

// DecodeRecord decodes a Record encoded with EncodeRecord
func DecodeRecord(data []byte) (Record, error) {
	var w wireRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return Record{}, fmt.Errorf("decodeRecord: %v", err)
	}
	if w.CodecVersion != CodecVersion {
		return Record{}, fmt.Errorf("decodeRecord: %w\n\twant(%v)\n\thave(%v)",
			ErrVersionMismatch, CodecVersion, w.CodecVersion)
	}

	size := tensor.Shape(w.StateShape).TotalSize()
	memory := make([]ts.Transition, len(w.Memory))
	for i, t := range w.Memory {
		if len(t.State) != size || len(t.NextState) != size {
			return Record{}, fmt.Errorf("decodeRecord: transition %v does "+
				"not match state shape %v", i, w.StateShape)
		}
		memory[i] = ts.Transition{
			State:     newState(w.StateShape, t.State),
			Action:    t.Action,
			Reward:    t.Reward,
			NextState: newState(w.StateShape, t.NextState),
			Done:      t.Done,
		}
	}

	return Record{
		RunID:   w.RunID,
		Episode: w.Episode,
		Step:    w.Step,
		Time:    w.Time,
		Agent: deepq.Snapshot{
			Online:     w.Online,
			Target:     w.Target,
			Epsilon:    w.Epsilon,
			Steps:      w.Steps,
			TrainCalls: w.TrainCalls,
			Memory:     memory,
		},
	}, nil
}

func newState(shape []int, data []float64) *tensor.Dense {
	return tensor.New(
		tensor.WithShape(shape...),
		tensor.WithBacking(data),
	)
}
