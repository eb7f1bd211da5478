package batch_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rshade/cryptoassets-importer/internal/engine/batch"
)

func makeItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

// BenchmarkRun measures runner overhead with a trivial worker across window sizes.
func BenchmarkRun(b *testing.B) {
	double := func(_ context.Context, item, _ int) (int, error) { return item * 2, nil }

	for _, n := range []int{100, 10000} {
		for _, k := range []int{1, 8, 50} {
			b.Run(fmt.Sprintf("items=%d/concurrency=%d", n, k), func(b *testing.B) {
				b.ReportAllocs()
				items := makeItems(n)
				runner, err := batch.NewRunner[int, int](k)
				if err != nil {
					b.Fatal(err)
				}

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := runner.Run(context.Background(), items, double); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
