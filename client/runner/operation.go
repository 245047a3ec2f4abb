package runner

import (
	"context"
	"errors"

	generator "csb/data-generator"
	"csb/client/stats"
	"csb/client/store"
)

// Operation names a store operation of the workload
type Operation string

const (
	OpGet            Operation = "get"
	OpPut            Operation = "put"
	OpPutIfAbsent    Operation = "putIfAbsent"
	OpRemove         Operation = "remove"
	OpRemoveElement  Operation = "removeElement"
	OpReplace        Operation = "replace"
	OpReplaceElement Operation = "replaceElement"
)

// Operations lists the built-in operations
var Operations = []Operation{OpGet, OpPut, OpPutIfAbsent, OpRemove, OpRemoveElement, OpReplace, OpReplaceElement}

// Category returns the statistics category of a built-in operation. Unknown operations
// are reads.
func (o Operation) Category() stats.Category {
	switch o {
	case OpPut, OpPutIfAbsent, OpReplace, OpReplaceElement:
		return stats.Write
	case OpRemove, OpRemoveElement:
		return stats.Remove
	default:
		return stats.Read
	}
}

// Effect runs one operation for a seed
type Effect func(ctx context.Context, seed int64, env *Env) error

// Descriptor is one entry of the operation table
type Descriptor struct {
	Name     Operation
	Category stats.Category
	Ratio    float64
	Effect   Effect
}

// Env is what an effect works with
type Env struct {
	Store     store.Store
	Keys      generator.ObjectGenerator
	Values    generator.ObjectGenerator
	Mode      ValidationMode
	Validator Validator
}

func (e *Env) Key(seed int64) string {
	return string(e.Keys.Generate(seed))
}

func (e *Env) Value(seed int64) []byte {
	return e.Values.Generate(seed)
}

// check validates an observed value when validation is on. A nil value is not checked.
func (e *Env) check(seed int64, key string, observed []byte) error {
	if e.Mode == ValidationNone || observed == nil {
		return nil
	}
	err := e.Validator.Validate(seed, observed)
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Key == "" {
		verr.Key = key
	}
	return err
}

// builtinEffect returns the effect of a built-in operation
func builtinEffect(op Operation) (Effect, bool) {
	switch op {
	case OpGet:
		return getEffect, true
	case OpPut:
		return func(ctx context.Context, seed int64, env *Env) error {
			return env.Store.Put(ctx, env.Key(seed), env.Value(seed))
		}, true
	case OpPutIfAbsent:
		return func(ctx context.Context, seed int64, env *Env) error {
			key := env.Key(seed)
			prev, err := env.Store.PutIfAbsent(ctx, key, env.Value(seed))
			if err != nil {
				return err
			}
			return env.check(seed, key, prev)
		}, true
	case OpRemove:
		return func(ctx context.Context, seed int64, env *Env) error {
			_, err := env.Store.Remove(ctx, env.Key(seed))
			return err
		}, true
	case OpRemoveElement:
		return func(ctx context.Context, seed int64, env *Env) error {
			_, err := env.Store.RemoveElement(ctx, env.Key(seed), env.Value(seed))
			return err
		}, true
	case OpReplace:
		return func(ctx context.Context, seed int64, env *Env) error {
			key := env.Key(seed)
			prev, err := env.Store.Replace(ctx, key, env.Value(seed))
			if err != nil {
				return err
			}
			return env.check(seed, key, prev)
		}, true
	case OpReplaceElement:
		return func(ctx context.Context, seed int64, env *Env) error {
			value := env.Value(seed)
			_, err := env.Store.ReplaceElement(ctx, env.Key(seed), value, value)
			return err
		}, true
	default:
		return nil, false
	}
}

// getEffect reads the key of a seed. With validation on, a missing value either fails
// (strict) or is written back from the generator (update).
func getEffect(ctx context.Context, seed int64, env *Env) error {
	key := env.Key(seed)
	value, err := env.Store.Get(ctx, key)
	if err != nil {
		return err
	}
	if value == nil {
		switch env.Mode {
		case ValidationStrict:
			return &ValidationError{Seed: seed, Key: key, Index: -1, Reason: "value is missing"}
		case ValidationUpdate:
			return env.Store.Put(ctx, key, env.Value(seed))
		}
		return nil
	}
	return env.check(seed, key, value)
}
