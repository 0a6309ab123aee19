package memory

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/errors"
	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/stores/neo4j"
)

// cypherResponse builds a Neo4j transactional response with one statement
// result of the given rows.
func cypherResponse(rows ...[]any) map[string]any {
	data := make([]any, 0, len(rows))
	for _, row := range rows {
		data = append(data, map[string]any{"row": row})
	}
	return map[string]any{
		"results": []any{map[string]any{"data": data}},
		"errors":  []any{},
	}
}

func graphStoreAgainst(handler http.HandlerFunc) (*Neo4jGraphStore, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewNeo4jGraphStore(neo4j.New(srv.URL, "", "")), srv
}

func TestGraphAddEdge(t *testing.T) {
	ctx := context.Background()

	Convey("Given the graph store", t, func() {
		Convey("An invalid relationship type is rejected before any query", func() {
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {
				t.Error("no query expected")
			})
			defer srv.Close()

			err := store.AddEdge(ctx, Connection{FromID: "a", ToID: "b", Type: "DROP ALL"})
			So(goerrors.Is(err, errors.ErrValidation), ShouldBeTrue)
		})

		Convey("Missing endpoints surface as a validation error", func() {
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(cypherResponse([]any{float64(0)}))
			})
			defer srv.Close()

			err := store.AddEdge(ctx, Connection{FromID: "a", ToID: "ghost", Type: RelRelatesTo})
			So(goerrors.Is(err, errors.ErrValidation), ShouldBeTrue)
		})

		Convey("A created edge passes", func() {
			var stmt string
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				json.NewDecoder(r.Body).Decode(&body)
				statements := body["statements"].([]any)
				stmt = statements[0].(map[string]any)["statement"].(string)
				json.NewEncoder(w).Encode(cypherResponse([]any{float64(1)}))
			})
			defer srv.Close()

			err := store.AddEdge(ctx, Connection{FromID: "a", ToID: "b", Type: RelReferences})
			So(err, ShouldBeNil)
			So(stmt, ShouldContainSubstring, "[r:REFERENCES")
		})
	})
}

func TestGraphRelatedMemories(t *testing.T) {
	ctx := context.Background()

	Convey("Given the graph store", t, func() {
		Convey("Related memories carry distance-decayed confidence", func() {
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(cypherResponse(
					[]any{"near", "near excerpt", "semantic", float64(1)},
					[]any{"far", "far excerpt", "episodic", float64(3)},
				))
			})
			defer srv.Close()

			related, err := store.RelatedMemories(ctx, "origin", 3)
			So(err, ShouldBeNil)
			So(related, ShouldHaveLength, 2)
			So(related[0].Confidence, ShouldAlmostEqual, 0.8, 1e-9)
			So(related[1].Confidence, ShouldAlmostEqual, 0.4, 1e-9)
			So(related[1].Type, ShouldEqual, Episodic)
		})

		Convey("Deep decay floors at 0.1", func() {
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(cypherResponse(
					[]any{"deep", "deep excerpt", "semantic", float64(5)},
				))
			})
			defer srv.Close()

			related, err := store.RelatedMemories(ctx, "origin", 5)
			So(err, ShouldBeNil)
			So(related[0].Confidence, ShouldAlmostEqual, 0.1, 1e-9)
		})

		Convey("The traversal depth is clamped into the statement", func() {
			var stmt string
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				json.NewDecoder(r.Body).Decode(&body)
				statements := body["statements"].([]any)
				stmt = statements[0].(map[string]any)["statement"].(string)
				json.NewEncoder(w).Encode(cypherResponse())
			})
			defer srv.Close()

			_, err := store.RelatedMemories(ctx, "origin", 99)
			So(err, ShouldBeNil)
			So(stmt, ShouldContainSubstring, "[*1..5]")
		})
	})
}

func TestGraphConceptClusters(t *testing.T) {
	ctx := context.Background()

	Convey("Given the graph store", t, func() {
		Convey("Clusters parse tag, count, and samples", func() {
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(cypherResponse(
					[]any{"infra", float64(4), []any{"m1", "m2", "m3"}},
				))
			})
			defer srv.Close()

			clusters, err := store.ConceptClusters(ctx, "")
			So(err, ShouldBeNil)
			So(clusters, ShouldHaveLength, 1)
			So(clusters[0].Tag, ShouldEqual, "infra")
			So(clusters[0].MemoryCount, ShouldEqual, 4)
			So(clusters[0].SampleMemoryIDs, ShouldResemble, []string{"m1", "m2", "m3"})
		})
	})
}

func TestGraphEntityConnections(t *testing.T) {
	ctx := context.Background()

	Convey("Given the graph store", t, func() {
		Convey("An unknown entity type is a validation error", func() {
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {})
			defer srv.Close()

			_, err := store.EntityConnections(ctx, "x", "planet", 10)
			So(goerrors.Is(err, errors.ErrValidation), ShouldBeTrue)
		})

		Convey("Tag entities match on name", func() {
			var stmt string
			store, srv := graphStoreAgainst(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				json.NewDecoder(r.Body).Decode(&body)
				statements := body["statements"].([]any)
				stmt = statements[0].(map[string]any)["statement"].(string)
				json.NewEncoder(w).Encode(cypherResponse())
			})
			defer srv.Close()

			_, err := store.EntityConnections(ctx, "infra", "tag", 10)
			So(err, ShouldBeNil)
			So(stmt, ShouldContainSubstring, "(e:Tag {name: $id})")
		})
	})
}

func TestConnectionsFromRows(t *testing.T) {
	Convey("Given raw connection rows", t, func() {
		Convey("Well-formed rows parse into connections", func() {
			rows := [][]any{
				{"a", "b", "RELATES_TO", 0.9, `{"note":"x"}`, "2026-08-24T10:00:00Z"},
			}

			conns := connectionsFromRows(rows)
			So(conns, ShouldHaveLength, 1)
			So(conns[0].FromID, ShouldEqual, "a")
			So(conns[0].Type, ShouldEqual, "RELATES_TO")
			So(conns[0].Confidence, ShouldAlmostEqual, 0.9, 1e-9)
			So(conns[0].Properties["note"], ShouldEqual, "x")
		})

		Convey("Short or malformed rows are skipped", func() {
			rows := [][]any{
				{"a", "b"},
				{"a", "b", "T", nil, "null", "not-a-time"},
			}

			conns := connectionsFromRows(rows)
			So(conns, ShouldHaveLength, 1)
			So(conns[0].Confidence, ShouldEqual, 0)
		})
	})
}
