package arbor_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/state"
)

func Example() {
	count := state.NewVar(0)

	eng := arbor.New(arbor.WithRootID("example"))
	eng.SetRoot(dsl.Provider(func() *dsl.NodeBuilder {
		return dsl.Node("Root").Child(dsl.Node("Counter").Key("c").State(count))
	}))

	ctx := context.Background()
	if err := eng.Flush(ctx); err != nil {
		panic(err)
	}
	before, _ := eng.Current().At("/Root@0/Counter#c")

	count.Set(3)
	if err := eng.Flush(ctx); err != nil {
		panic(err)
	}
	after, _ := eng.Current().At("/Root@0/Counter#c")

	fmt.Println(eng.Current().Number, eng.Current().Trigger)
	fmt.Println("same handle:", before.Handle == after.Handle)
	fmt.Println("value:", eng.States()[0].Value)
	// Output:
	// 2 state_update
	// same handle: true
	// value: 3
}

func ExampleEngine_Write() {
	eng := arbor.New()
	eng.SetRoot(dsl.Static(dsl.Node("Form").Child(
		dsl.Node("Name").State(state.Declare("")),
	)))

	ctx := context.Background()
	if err := eng.Flush(ctx); err != nil {
		panic(err)
	}

	if err := eng.Write("/Form@0/Name@0", "Ada"); err != nil {
		panic(err)
	}
	err := eng.Write("/Form@0", "nope")
	fmt.Println("stateless:", errors.Is(err, domain.ErrInvalidAccess))

	if err := eng.Flush(ctx); err != nil {
		panic(err)
	}
	fmt.Println(eng.States()[0].Position, "=", eng.States()[0].Value)
	// Output:
	// stateless: true
	// /Form@0/Name@0 = Ada
}
