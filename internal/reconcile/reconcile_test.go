package reconcile

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
)

type memoryTarget struct {
	values    Values
	getErr    error
	updateErr error
	updates   []Values
}

func (t *memoryTarget) Get(context.Context) (Values, error) {
	if t.getErr != nil {
		return nil, t.getErr
	}
	return t.values.Clone(), nil
}

func (t *memoryTarget) Update(_ context.Context, values Values) (Values, error) {
	if t.updateErr != nil {
		return nil, t.updateErr
	}
	t.updates = append(t.updates, values.Clone())
	t.values = values.Clone()
	return values, nil
}

func countingSource(name string, values Values, fetches *int) Source {
	return Source{
		Name: name,
		Fetch: func(context.Context) (Values, error) {
			*fetches++
			return values.Clone(), nil
		},
	}
}

var silent = console.NewPlainStatus(io.Discard)

func TestReconcileStagesChangedFields(t *testing.T) {
	t.Parallel()

	target := &memoryTarget{values: Values{"url": "amqp://old"}}
	fetches := 0
	step := New(Spec{
		Name:    "rabbitmq",
		Target:  target,
		Sources: []Source{countingSource("rabbitmq", Values{"url": "amqp://new", ReturnCodeKey: 0}, &fetches)},
		Fields:  []string{"url"},
	})

	skip, err := step.IsSkip(context.Background(), silent)
	require.NoError(t, err)
	require.False(t, skip)
	require.Equal(t, Values{"url": "amqp://new"}, step.Staged())

	res := step.Run(context.Background(), silent)
	require.Equal(t, model.ResultCompleted, res.Type)
	require.Equal(t, []Values{{"url": "amqp://new"}}, target.updates)
	require.Equal(t, 1, fetches, "Run must not fetch sources again")
}

func TestReconcileSkipsWhenConverged(t *testing.T) {
	t.Parallel()

	target := &memoryTarget{values: Values{"url": "amqp://new"}}
	fetches := 0
	step := New(Spec{
		Name:    "rabbitmq",
		Target:  target,
		Sources: []Source{countingSource("rabbitmq", Values{"url": "amqp://new", ReturnCodeKey: 0}, &fetches)},
		Fields:  []string{"url"},
	})

	reports, err := engine.NewRunner(engine.Options{}).Run(context.Background(), []engine.Step{step})
	require.NoError(t, err)
	require.Equal(t, model.StateSkipped, reports[0].State)
	require.Empty(t, target.updates)
}

func TestReconcileSecondRunIsSkipped(t *testing.T) {
	t.Parallel()

	target := &memoryTarget{values: Values{"url": "amqp://old", "untouched": "x"}}
	fetches := 0
	spec := Spec{
		Name:    "rabbitmq",
		Target:  target,
		Sources: []Source{countingSource("rabbitmq", Values{"url": "amqp://new", ReturnCodeKey: 0}, &fetches)},
		Fields:  []string{"url"},
	}

	runner := engine.NewRunner(engine.Options{})
	_, err := runner.Run(context.Background(), []engine.Step{New(spec)})
	require.NoError(t, err)

	reports, err := runner.Run(context.Background(), []engine.Step{New(spec)})
	require.NoError(t, err)
	require.Equal(t, model.StateSkipped, reports[0].State)
	require.Len(t, target.updates, 1)
	require.Equal(t, "x", target.values["untouched"])
}

func TestReconcileOnlyComparesDeclaredFields(t *testing.T) {
	t.Parallel()

	target := &memoryTarget{values: Values{"username": "nova", "region-name": "RegionOne"}}
	fetches := 0
	step := New(Spec{
		Name:   "identity",
		Target: target,
		Sources: []Source{countingSource("keystone", Values{
			"username": "nova", "region-name": "RegionTwo", ReturnCodeKey: 0,
		}, &fetches)},
		Fields: []string{"username"},
	})

	skip, err := step.IsSkip(context.Background(), silent)
	require.NoError(t, err)
	require.True(t, skip)
}

func TestReconcileAppliesAliases(t *testing.T) {
	t.Parallel()

	target := &memoryTarget{values: Values{"auth-url": "http://old"}}
	fetches := 0
	step := New(Spec{
		Name:   "identity",
		Target: target,
		Sources: []Source{{
			Name: "keystone",
			Fetch: func(context.Context) (Values, error) {
				fetches++
				return Values{"public-endpoint": "http://new", ReturnCodeKey: 0}, nil
			},
			Aliases: map[string]string{"public-endpoint": "auth-url"},
		}},
		Fields: []string{"auth-url"},
	})

	skip, err := step.IsSkip(context.Background(), silent)
	require.NoError(t, err)
	require.False(t, skip)
	require.Equal(t, Values{"auth-url": "http://new"}, step.Staged())
}

func TestReconcileBothEmptyIsConverged(t *testing.T) {
	t.Parallel()

	target := &memoryTarget{values: Values{"ovn-key": nil, "ovn-cert": ""}}
	fetches := 0
	step := New(Spec{
		Name:    "network",
		Target:  target,
		Sources: []Source{countingSource("vault", Values{ReturnCodeKey: 0, "ovn-cert": nil}, &fetches)},
		Fields:  []string{"ovn-key", "ovn-cert"},
	})

	skip, err := step.IsSkip(context.Background(), silent)
	require.NoError(t, err)
	require.True(t, skip)
}

func TestReconcileFailsOnActionReturnCode(t *testing.T) {
	t.Parallel()

	for name, values := range map[string]Values{
		"non-zero code": {"url": "amqp://new", ReturnCodeKey: 1},
		"missing code":  {"url": "amqp://new"},
		"string code":   {"url": "amqp://new", ReturnCodeKey: "2"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			target := &memoryTarget{values: Values{"url": "amqp://new"}}
			fetches := 0
			step := New(Spec{
				Name:    "rabbitmq",
				Target:  target,
				Sources: []Source{countingSource("rabbitmq", values, &fetches)},
				Fields:  []string{"url"},
			})

			skip, err := step.IsSkip(context.Background(), silent)
			require.NoError(t, err)
			require.False(t, skip)

			res := step.Run(context.Background(), silent)
			require.True(t, res.IsFailed())
			require.Equal(t, ActionFailedMessage, res.Text())
			require.Empty(t, target.updates)
		})
	}
}

func TestReconcileReportsUpdateError(t *testing.T) {
	t.Parallel()

	target := &memoryTarget{values: Values{"url": "amqp://old"}, updateErr: errors.New("409 conflict")}
	fetches := 0
	step := New(Spec{
		Name:    "rabbitmq",
		Target:  target,
		Sources: []Source{countingSource("rabbitmq", Values{"url": "amqp://new", ReturnCodeKey: float64(0)}, &fetches)},
		Fields:  []string{"url"},
	})

	_, err := step.IsSkip(context.Background(), silent)
	require.NoError(t, err)
	res := step.Run(context.Background(), silent)
	require.True(t, res.IsFailed())
	require.Equal(t, "409 conflict", res.Text())
}

func TestReconcileSurfacesFetchErrors(t *testing.T) {
	t.Parallel()

	step := New(Spec{
		Name:   "network",
		Target: &memoryTarget{getErr: errors.New("socket not found")},
		Fields: []string{"ovn-key"},
	})
	_, err := step.IsSkip(context.Background(), silent)
	require.ErrorContains(t, err, "socket not found")

	step = New(Spec{
		Name:   "network",
		Target: &memoryTarget{values: Values{}},
		Sources: []Source{{Name: "vault", Fetch: func(context.Context) (Values, error) {
			return nil, errors.New("action timed out")
		}}},
		Fields: []string{"ovn-key"},
	})
	_, err = step.IsSkip(context.Background(), silent)
	require.ErrorContains(t, err, "vault: action timed out")
}

func TestReconcileRunWithoutEvaluation(t *testing.T) {
	t.Parallel()

	step := New(Spec{Name: "node", Target: &memoryTarget{}})
	res := step.Run(context.Background(), silent)
	require.True(t, res.IsFailed())
}

func TestBase64FieldsEncodesRawMaterialOnce(t *testing.T) {
	t.Parallel()

	pem := "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----"
	encoded := base64.StdEncoding.EncodeToString([]byte(pem))

	target := &memoryTarget{values: Values{"ovn-cert": encoded}}
	fetches := 0
	source := countingSource("vault", Values{"certificate": pem, ReturnCodeKey: 0}, &fetches)
	source.Transform = Base64Fields(map[string]string{"certificate": "ovn-cert", "private-key": "ovn-key"})

	spec := Spec{Name: "network", Target: target, Sources: []Source{source}, Fields: []string{"ovn-cert", "ovn-key"}}

	for i := 0; i < 2; i++ {
		skip, err := New(spec).IsSkip(context.Background(), silent)
		require.NoError(t, err)
		require.True(t, skip, "pass %d", i)
	}
}

func TestBase64FieldsRejectsNonText(t *testing.T) {
	t.Parallel()

	_, err := Base64Fields(map[string]string{"certificate": "ovn-cert"})(Values{"certificate": 42})
	require.Error(t, err)
}

func TestStaticSourceIsLocal(t *testing.T) {
	t.Parallel()

	target := &memoryTarget{values: Values{"fqdn": "old.example"}}
	step := New(Spec{
		Name:   "node",
		Target: target,
		Sources: []Source{StaticSource("local", func() (Values, error) {
			return Values{"fqdn": "node1.example"}, nil
		})},
		Fields: []string{"fqdn"},
	})

	skip, err := step.IsSkip(context.Background(), silent)
	require.NoError(t, err)
	require.False(t, skip)
	require.Equal(t, model.ResultCompleted, step.Run(context.Background(), silent).Type)
	require.Equal(t, "node1.example", target.values["fqdn"])
}

func TestEqual(t *testing.T) {
	t.Parallel()

	require.True(t, Equal(nil, ""))
	require.True(t, Equal(1, float64(1)))
	require.True(t, Equal("a", "a"))
	require.False(t, Equal("a", "b"))
	require.False(t, Equal(nil, "a"))
	require.True(t, Equal(false, false))
	require.False(t, Equal(false, nil))
}
