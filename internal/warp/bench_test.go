package warp

import (
	"fmt"
	"testing"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/testutil"
)

func BenchmarkWarp(b *testing.B) {
	src := testutil.CoordImage(1296, 972)
	h, err := homography.Estimate(
		[4]homography.Point{{X: 280, Y: 265}, {X: 1020, Y: 175}, {X: 287, Y: 867}, {X: 1027, Y: 944}},
		[4]homography.Point{{X: 0, Y: 0}, {X: 1023, Y: 0}, {X: 0, Y: 767}, {X: 1023, Y: 767}},
	)
	if err != nil {
		b.Fatal(err)
	}

	for _, workers := range []int{1, 2, 4, 0} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			for range b.N {
				if _, err := Warp(src, h, 1024, 768, WithWorkers(workers)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
