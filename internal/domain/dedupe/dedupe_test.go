package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ladder/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("A new id is recorded once", func() {
			So(d.SeenAndRecord(ctx, "msg-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "msg-1"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("Unrecord lets an id through again", func() {
			d.SeenAndRecord(ctx, "msg-1")
			d.Unrecord(ctx, "msg-1")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "msg-1"), ShouldBeFalse)
		})

		Convey("Unrecord of an unknown id is a no-op", func() {
			d.Unrecord(ctx, "nope")
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a deduper bounded to three ids", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"a", "b", "c"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("A fourth id evicts the oldest", func() {
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})

		Convey("An unrecorded id does not hold a place in the window", func() {
			d.Unrecord(ctx, "a")
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)

			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeFalse)
		})

		Convey("The window survives long runs", func() {
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("m-%d", i))
			}
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "m-999"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "m-996"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 500; i++ {
			So(d.SeenAndRecord(ctx, fmt.Sprintf("m-%d", i)), ShouldBeFalse)
		}
		So(d.Size(), ShouldEqual, 500)
		So(d.SeenAndRecord(ctx, "m-0"), ShouldBeTrue)
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Concurrent recorders agree on exactly one first sighting", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const goroutines = 10

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			first int
		)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					if !d.SeenAndRecord(context.Background(), fmt.Sprintf("m-%d", j)) {
						mu.Lock()
						first++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		So(first, ShouldEqual, 100)
		So(d.Size(), ShouldEqual, 100)
	})
}
