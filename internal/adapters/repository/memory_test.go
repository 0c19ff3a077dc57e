package repository

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	storeSuite(t, true, func(_ *testing.T, opts ...Option) Store {
		return NewMemoryStore(opts...)
	})
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()

	Convey("Documents returned by Get are copies", t, func() {
		s := NewMemoryStore()
		_, err := s.Set(ctx, "teams", []byte(`{"a":1}`), "")
		So(err, ShouldBeNil)

		doc, err := s.Get(ctx, "teams")
		So(err, ShouldBeNil)
		doc.Data[2] = 'b'

		again, err := s.Get(ctx, "teams")
		So(err, ShouldBeNil)
		So(string(again.Data), ShouldEqual, `{"a":1}`)
		So(s.Backend(), ShouldEqual, "memory")
		So(s.Close(), ShouldBeNil)
	})
}
