package metadata

import (
	"context"
	goerrors "errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/errors"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a local metadata store", t, func() {
		store, err := NewLocalStore(t.TempDir())
		So(err, ShouldBeNil)

		Convey("Put then Get round-trips a record", func() {
			So(store.Put(ctx, TableMemories, "k1", record{Name: "first", Count: 2}), ShouldBeNil)

			var got record
			So(store.Get(ctx, TableMemories, "k1", &got), ShouldBeNil)
			So(got, ShouldResemble, record{Name: "first", Count: 2})
		})

		Convey("Get on a missing key reports not found", func() {
			var got record
			err := store.Get(ctx, TableMemories, "missing", &got)
			So(goerrors.Is(err, errors.ErrNotFound), ShouldBeTrue)
		})

		Convey("Put overwrites an existing record", func() {
			So(store.Put(ctx, TableMemories, "k1", record{Name: "old"}), ShouldBeNil)
			So(store.Put(ctx, TableMemories, "k1", record{Name: "new"}), ShouldBeNil)

			var got record
			So(store.Get(ctx, TableMemories, "k1", &got), ShouldBeNil)
			So(got.Name, ShouldEqual, "new")
		})

		Convey("Delete removes the record", func() {
			So(store.Put(ctx, TableMemories, "k1", record{Name: "doomed"}), ShouldBeNil)
			So(store.Delete(ctx, TableMemories, "k1"), ShouldBeNil)

			var got record
			err := store.Get(ctx, TableMemories, "k1", &got)
			So(goerrors.Is(err, errors.ErrNotFound), ShouldBeTrue)
		})

		Convey("Delete on a missing key reports not found", func() {
			err := store.Delete(ctx, TableMemories, "missing")
			So(goerrors.Is(err, errors.ErrNotFound), ShouldBeTrue)
		})

		Convey("List returns every record of one table only", func() {
			So(store.Put(ctx, TableMemories, "a", record{Name: "a"}), ShouldBeNil)
			So(store.Put(ctx, TableMemories, "b", record{Name: "b"}), ShouldBeNil)
			So(store.Put(ctx, TableSessions, "s", record{Name: "s"}), ShouldBeNil)

			records, err := store.List(ctx, TableMemories)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
			So(records, ShouldContainKey, "a")
			So(records, ShouldContainKey, "b")
		})

		Convey("List on an unknown table is empty, not an error", func() {
			records, err := store.List(ctx, "nothing-here")
			So(err, ShouldBeNil)
			So(records, ShouldBeEmpty)
		})

		Convey("Health passes on a live directory", func() {
			So(store.Health(ctx), ShouldBeNil)
		})
	})
}
