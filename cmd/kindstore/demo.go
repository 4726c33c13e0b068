package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/spf13/cobra"

	"github.com/zeusync/kindstore/internal/core/config"
	"github.com/zeusync/kindstore/internal/core/kindset"
	"github.com/zeusync/kindstore/internal/core/observability/log"
	"github.com/zeusync/kindstore/internal/core/query"
	"github.com/zeusync/kindstore/internal/core/scope"
	"github.com/zeusync/kindstore/internal/injector"
	"github.com/zeusync/kindstore/pkg/bitset"
)

type position struct{ X, Y float64 }

type velocity struct{ DX, DY float64 }

// layout names the kinds the demo workload uses in a given kind space.
type layout[K comparable] struct {
	position K
	velocity K
	frozen   K
	tags     []K
}

type demoOptions struct {
	entities int
	steps    int
	churn    int
	seed     uint64
}

func newDemoCmd(flags *injector.Flags) *cobra.Command {
	opts := demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a synthetic movement workload and report query sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := injector.InitializeRuntime(*flags)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), rt, opts)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.entities, "entities", "n", 1000, "entities to create")
	f.IntVar(&opts.steps, "steps", 10, "simulation steps")
	f.IntVar(&opts.churn, "churn", 50, "component toggles per step")
	f.Uint64Var(&opts.seed, "seed", 1, "random seed")
	return cmd
}

func runDemo(ctx context.Context, out io.Writer, rt *injector.Runtime, opts demoOptions) error {
	switch rt.Config.KindSet {
	case config.KindSetHashSet:
		return workload[string, kindset.HashSet[string]](ctx, out, rt, kindset.NewHashSetManager[string](), layout[string]{
			position: "position",
			velocity: "velocity",
			frozen:   "frozen",
			tags:     []string{"player", "npc", "item", "hidden", "dirty"},
		}, opts)
	case config.KindSetRoaring:
		return workload[uint32, *roaring.Bitmap](ctx, out, rt, kindset.NewRoaringManager(), layout[uint32]{
			position: 0,
			velocity: 1,
			frozen:   1 << 10,
			tags:     []uint32{1 << 16, 1 << 17, 1 << 18, 1 << 19, 1 << 20},
		}, opts)
	default:
		return workload[int, *bitset.FlagArray](ctx, out, rt, injector.FlagManager(rt), layout[int]{
			position: 0,
			velocity: 1,
			frozen:   2,
			tags:     []int{3, 4, 5, 6, 7},
		}, opts)
	}
}

func workload[K comparable, S any](ctx context.Context, out io.Writer, rt *injector.Runtime, manager kindset.Manager[K, S], l layout[K], opts demoOptions) error {
	s, err := injector.NewScope(rt, manager, scope.Sequential[uint64](1))
	if err != nil {
		return err
	}
	defer s.Close()

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	logger := rt.Log.Named("demo")

	_, movers, err := s.Query([]K{l.position, l.velocity}, nil, []K{l.frozen})
	if err != nil {
		return err
	}
	_, still, err := s.Query([]K{l.position}, nil, []K{l.velocity})
	if err != nil {
		return err
	}
	_, tagged, err := s.Query(nil, l.tags, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.Batch(func() {
		for range opts.entities {
			if err := spawn(s, rng, l); err != nil {
				logger.Warn("spawn failed", log.Error(err))
				return
			}
		}
	})
	if err != nil {
		return err
	}
	logger.Info("entities spawned",
		log.Int("entities", s.Len()),
		log.Duration("elapsed", time.Since(start)))

	for step := range opts.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		stepStart := time.Now()
		for _, e := range movers.Slice() {
			err := scope.With2(s, e, l.position, l.velocity, func(p *position, v *velocity) {
				p.X += v.DX
				p.Y += v.DY
			})
			if err != nil {
				return err
			}
		}
		if err := churn(s, rng, l, opts.churn); err != nil {
			return err
		}
		logger.Debug("step done",
			log.Int("step", step),
			log.Int("movers", movers.Count()),
			log.Duration("elapsed", time.Since(stepStart)))
	}

	report(out, s.Stats(), map[string]*query.EntityCollection[uint64]{
		"movers": movers,
		"still":  still,
		"tagged": tagged,
	}, time.Since(start))
	return nil
}

func spawn[K comparable, S any](s *scope.Scope[uint64, K, S], rng *rand.Rand, l layout[K]) error {
	e, err := s.CreateEntity()
	if err != nil {
		return err
	}
	if err = scope.SetComponent(s, e, l.position, position{X: rng.Float64() * 100, Y: rng.Float64() * 100}); err != nil {
		return err
	}
	if rng.IntN(2) == 0 {
		if err = scope.SetComponent(s, e, l.velocity, velocity{DX: rng.NormFloat64(), DY: rng.NormFloat64()}); err != nil {
			return err
		}
	}
	if rng.IntN(10) == 0 {
		if err = scope.SetComponent(s, e, l.frozen, true); err != nil {
			return err
		}
	}
	for _, tag := range l.tags {
		if rng.IntN(4) == 0 {
			if err = scope.SetComponent(s, e, tag, rng.IntN(100)); err != nil {
				return err
			}
		}
	}
	return nil
}

// churn toggles n random frozen or velocity components.
func churn[K comparable, S any](s *scope.Scope[uint64, K, S], rng *rand.Rand, l layout[K], n int) error {
	size := s.Len()
	if size == 0 {
		return nil
	}
	return s.Batch(func() {
		for range n {
			e := uint64(rng.IntN(size)) + 1
			kind := l.frozen
			if rng.IntN(2) == 0 {
				kind = l.velocity
			}
			switch {
			case s.HasComponent(e, kind):
				_ = s.UnsetComponent(e, kind)
			case kind == l.frozen:
				_ = scope.SetComponent(s, e, kind, true)
			default:
				_ = scope.SetComponent(s, e, kind, velocity{DX: rng.NormFloat64(), DY: rng.NormFloat64()})
			}
		}
	})
}

func report(out io.Writer, stats scope.Stats, collections map[string]*query.EntityCollection[uint64], elapsed time.Duration) {
	fmt.Fprintf(out, "entities:  %d\n", stats.Entities)
	fmt.Fprintf(out, "kinds:     %d\n", stats.Kinds)
	fmt.Fprintf(out, "queries:   %d\n", stats.Queries)
	fmt.Fprintf(out, "changes:   %d published, %d handler errors\n", stats.Events.Published, stats.Events.Errors)
	fmt.Fprintf(out, "elapsed:   %s\n", elapsed.Round(time.Microsecond))

	fmt.Fprintln(out, "collections:")
	for _, name := range slices.Sorted(maps.Keys(collections)) {
		fmt.Fprintf(out, "  %-8s %d\n", name, collections[name].Count())
	}
	fmt.Fprintln(out, "components:")
	for _, name := range slices.Sorted(maps.Keys(stats.Components)) {
		fmt.Fprintf(out, "  %-24s %d\n", name, stats.Components[name])
	}
}
