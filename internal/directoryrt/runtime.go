// Package directoryrt binds the person directory to the GraphQL executor.
//
// Root Query and Mutation fields are async: each one reaches the record store
// through directory.Service and may run concurrently with its siblings in the
// same batch. Person and Address fields are sync projections or computations
// over the record resolved by the root field.
package directoryrt

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/persongraph/internal/directory"
	executor "github.com/hanpama/persongraph/internal/executor"
)

// DefaultConcurrency bounds the root fields of one batch resolved at once.
const DefaultConcurrency = 8

// Runtime implements executor.Runtime over a directory.Service.
type Runtime struct {
	svc         *directory.Service
	logger      *zap.Logger
	concurrency int
}

var _ executor.Runtime = (*Runtime)(nil)

type Option func(*Runtime)

func WithLogger(l *zap.Logger) Option { return func(r *Runtime) { r.logger = l } }

// WithConcurrency sets how many root fields of a batch resolve in parallel.
func WithConcurrency(n int) Option { return func(r *Runtime) { r.concurrency = n } }

func New(svc *directory.Service, opts ...Option) *Runtime {
	r := &Runtime{svc: svc, logger: zap.NewNop(), concurrency: DefaultConcurrency}
	for _, o := range opts {
		o(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// BatchResolveAsync resolves root fields. Results line up with tasks.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 1 {
		results[0] = r.resolveRoot(ctx, tasks[0])
		return results
	}
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = r.resolveRoot(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runtime) resolveRoot(ctx context.Context, t executor.AsyncResolveTask) executor.AsyncResolveResult {
	v, err := r.root(ctx, t.ObjectType, t.Field, t.Args)
	if err != nil {
		r.logger.Debug("root field failed",
			zap.String("field", t.ObjectType+"."+t.Field),
			zap.Error(err),
		)
		return executor.AsyncResolveResult{Error: err}
	}
	return executor.AsyncResolveResult{Value: v}
}

func (r *Runtime) root(ctx context.Context, objectType, field string, args map[string]any) (any, error) {
	switch objectType + "." + field {
	case "Query.personCount":
		return r.svc.PersonCount(ctx)
	case "Query.allPersons":
		var filter *directory.YesNo
		if s, ok := args["phone"].(string); ok {
			f, err := directory.ParseYesNo(s)
			if err != nil {
				return nil, err
			}
			filter = &f
		}
		return r.svc.AllPersons(ctx, filter)
	case "Query.findPerson":
		return r.svc.FindPerson(ctx, stringArg(args, "name"))
	case "Mutation.addPerson":
		return r.svc.AddPerson(ctx, directory.NewPerson{
			Name:   stringArg(args, "name"),
			Age:    intArg(args, "age"),
			Phone:  stringArg(args, "phone"),
			Street: stringArg(args, "street"),
			City:   stringArg(args, "city"),
		})
	case "Mutation.editPhoneNumber":
		return r.svc.EditPhoneNumber(ctx, stringArg(args, "name"), stringArg(args, "phone"))
	}
	return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
}

// ResolveSync resolves Person and Address fields from their parent value.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	switch objectType {
	case "Person":
		p, ok := personOf(source)
		if !ok {
			return nil, fmt.Errorf("Person.%s: unexpected source %T", field, source)
		}
		return r.personField(p, field)
	case "Address":
		a, ok := source.(directory.Address)
		if !ok {
			return nil, fmt.Errorf("Address.%s: unexpected source %T", field, source)
		}
		switch field {
		case "street":
			return a.Street, nil
		case "city":
			return a.City, nil
		}
	}
	return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
}

func (r *Runtime) personField(p directory.PersonRecord, field string) (any, error) {
	switch field {
	case "id":
		return p.ID, nil
	case "name":
		return p.Name, nil
	case "age":
		return p.Age, nil
	case "phone":
		return directory.PhoneOf(p), nil
	case "birthYear":
		return directory.BirthYear(r.svc.Now(), p.Age), nil
	case "isOfLegalAge":
		return directory.IsOfLegalAge(p.Age), nil
	case "address":
		return directory.AddressOf(p.Street, p.City), nil
	}
	return nil, fmt.Errorf("no resolver for Person.%s", field)
}

func personOf(source any) (directory.PersonRecord, bool) {
	switch v := source.(type) {
	case directory.PersonRecord:
		return v, true
	case *directory.PersonRecord:
		if v != nil {
			return *v, true
		}
	}
	return directory.PersonRecord{}, false
}

// SerializeLeafValue converts leaf values to their JSON form.
func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if p, ok := value.(*string); ok {
		value = *p
	}
	switch typeName {
	case "String", "ID":
		if s, ok := value.(string); ok {
			return s, nil
		}
	case "Int":
		if n, ok := value.(int); ok {
			return n, nil
		}
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case "Float":
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		}
	case "YesNo":
		switch v := value.(type) {
		case directory.YesNo:
			return string(v), nil
		case string:
			if _, err := directory.ParseYesNo(v); err == nil {
				return v, nil
			}
		}
	}
	return nil, fmt.Errorf("%s cannot represent %v (%T)", typeName, value, value)
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func intArg(args map[string]any, name string) int {
	n, _ := args[name].(int)
	return n
}
