// Package csdemo decodes Source 2 demo recordings into columnar per-tick/
// per-entity data, game events, chat, convars, and end-of-match metadata.
//
// Parse runs the two-pass pipeline spec.md §2 describes: a single
// sequential first pass builds the serializer/class/string-table state,
// then a data-parallel second pass maps over the discovered FullPacket
// shards and the combiner in package output merges their results.
package csdemo

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/csdemo/csdemo/entity"
	"github.com/csdemo/csdemo/firstpass"
	"github.com/csdemo/csdemo/frame"
	"github.com/csdemo/csdemo/output"
	"github.com/csdemo/csdemo/propcontroller"
	"github.com/csdemo/csdemo/secondpass"
)

// Settings controls one Parse invocation (renamed config.File at the CLI
// layer, SPEC_FULL §10).
type Settings struct {
	WantedPlayerProps []string
	WantedOtherProps  []string
	WantedEvents      []string
	WantedPaths       []entity.PathKey
	ParseAllPackets   bool
	ParseProjectiles  bool
	ParseGrenades     bool
	ParseChat         bool
	ParseItemDrops    bool
	ParseVoice        bool
}

// DemoOutput is the parse result (spec.md §6).
type DemoOutput struct {
	Header         frame.Header
	Combined       output.Combined
	PropController *propcontroller.Controller
}

// MessageDispatchers bundles the caller-supplied protobuf decoders both
// passes need, since the actual message schemas are an out-of-scope
// external collaborator (§1): the generated protobuf types live outside
// this module and a caller wires them to these two callbacks.
type MessageDispatchers struct {
	FirstPass  firstpass.MessageDispatcher
	SecondPass secondpass.MessageDispatcher
}

// Parse memory-maps path, runs first pass, then fans the second pass out
// across the discovered FullPacket offsets (plus the header-start shard)
// using up to GOMAXPROCS workers, and combines the per-shard results
// (§5 "data-parallel map ... combiner is sequential and runs after all
// shards complete").
func Parse(path string, settings Settings, dispatch MessageDispatchers) (DemoOutput, error) {
	f, err := frame.Open(path)
	if err != nil {
		return DemoOutput{}, err
	}
	defer f.Close()

	first, err := firstpass.Run(f.Bytes(), dispatch.FirstPass)
	if err != nil {
		return DemoOutput{}, fmt.Errorf("first pass: %w", err)
	}

	shards := buildShards(first.FullPacketOffsets)
	props := propcontroller.New(append(append([]string{}, settings.WantedPlayerProps...), settings.WantedOtherProps...))
	secondSettings := secondpass.Settings{
		ParseAllPackets: settings.ParseAllPackets,
		Props:           props,
		WantedPaths:     settings.WantedPaths,
	}

	shardOutputs, err := runShards(f.Bytes(), first, shards, secondSettings, dispatch.SecondPass)
	if err != nil {
		return DemoOutput{}, fmt.Errorf("second pass: %w", err)
	}

	return DemoOutput{
		Header:         first.Header,
		Combined:       output.Combine(shardOutputs),
		PropController: props,
	}, nil
}

// buildShards turns first pass's FullPacketOffsets into the shard windows
// second pass runs over: the header-start shard [HeaderSize, first offset)
// plus one shard per discovered FullPacket, each running to the next
// FullPacket's offset (or EOF for the last one) (§4.11, §5).
func buildShards(fullPacketOffsets []int64) []secondpass.Shard {
	starts := append([]int64{int64(frame.HeaderSize)}, fullPacketOffsets...)
	shards := make([]secondpass.Shard, len(starts))
	for i, start := range starts {
		end := int64(-1)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		shards[i] = secondpass.Shard{StartOffset: start, EndOffset: end}
	}
	return shards
}

// runShards executes one secondpass.Engine per shard concurrently, each
// with its own private Entities/baseline state (§5's "Mutable, per-shard"
// list), and collects every ShardOutput for the combiner.
func runShards(buf []byte, first *firstpass.Output, shards []secondpass.Shard, settings secondpass.Settings, decodeMsg secondpass.MessageDispatcher) ([]output.ShardOutput, error) {
	results := make([]output.ShardOutput, len(shards))
	errs := make([]error, len(shards))

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for i, shard := range shards {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, shard secondpass.Shard) {
			defer wg.Done()
			defer func() { <-sem }()
			eng := secondpass.NewEngine(first, settings)
			out, err := eng.Run(buf, shard, decodeMsg)
			results[i] = out
			errs[i] = err
		}(i, shard)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
