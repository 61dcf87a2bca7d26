package testingutil

import (
	"context"
	"os"
	"testing"

	"github.com/innoai-tech/infra/pkg/configuration"
	testingx "github.com/octohelm/x/testing"
)

// NewContext wires the configurators of v the way the CLI does, rooted
// in a throwaway working directory.
func NewContext(t testing.TB, v any) context.Context {
	tmp := t.TempDir()
	_ = os.Chdir(tmp)

	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	ctx := context.Background()
	if v != nil {
		singletons := configuration.SingletonsFromStruct(v)

		c, err := singletons.Init(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		ctx = c

		for i := range singletons {
			if r, ok := singletons[i].Configurator.(configuration.Runner); ok {
				err := r.Run(ctx)
				testingx.Expect(t, err, testingx.Be[error](nil))
			}
		}

		t.Cleanup(func() {
			c := configuration.ContextInjectorFromContext(ctx).InjectContext(ctx)

			for _, s := range singletons {
				if canShutdown, ok := s.Configurator.(configuration.CanShutdown); ok {
					_ = configuration.Shutdown(c, canShutdown)
				}
			}
		})
	}

	return configuration.ContextInjectorFromContext(ctx).InjectContext(ctx)
}
