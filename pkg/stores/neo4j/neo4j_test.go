package neo4j

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExecCypher(t *testing.T) {
	ctx := context.Background()

	Convey("Given a Neo4j client", t, func() {
		Convey("Statements post to the transactional commit endpoint", func(c C) {
			var body map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.So(r.URL.Path, ShouldEqual, "/db/neo4j/tx/commit")
				c.So(r.Header.Get("Content-Type"), ShouldEqual, "application/json")
				json.NewDecoder(r.Body).Decode(&body)
				json.NewEncoder(w).Encode(map[string]any{"results": []any{}, "errors": []any{}})
			}))
			defer srv.Close()

			client := New(srv.URL, "", "")
			_, err := client.ExecCypher(ctx, "RETURN $x", map[string]any{"x": 1})
			So(err, ShouldBeNil)

			statements := body["statements"].([]any)
			So(statements, ShouldHaveLength, 1)
			first := statements[0].(map[string]any)
			So(first["statement"], ShouldEqual, "RETURN $x")
		})

		Convey("Credentials go out as basic auth", func(c C) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				c.So(ok, ShouldBeTrue)
				c.So(user, ShouldEqual, "neo4j")
				c.So(pass, ShouldEqual, "secret")
				json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
			}))
			defer srv.Close()

			client := New(srv.URL, "neo4j", "secret")
			_, err := client.ExecCypher(ctx, "RETURN 1", nil)
			So(err, ShouldBeNil)
		})

		Convey("A Cypher error in the response surfaces as an error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"results": []any{},
					"errors": []any{map[string]any{
						"code":    "Neo.ClientError.Statement.SyntaxError",
						"message": "Invalid input",
					}},
				})
			}))
			defer srv.Close()

			client := New(srv.URL, "", "")
			_, err := client.ExecCypher(ctx, "NOT CYPHER", nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Invalid input")
		})

		Convey("An HTTP error status surfaces as an error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer srv.Close()

			client := New(srv.URL, "", "")
			_, err := client.ExecCypher(ctx, "RETURN 1", nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRows(t *testing.T) {
	Convey("Given the row extraction helper", t, func() {
		Convey("Rows come out of the first statement result", func() {
			payload := map[string]any{
				"results": []any{
					map[string]any{
						"data": []any{
							map[string]any{"row": []any{"id-1", "excerpt", float64(2)}},
							map[string]any{"row": []any{"id-2", "other", float64(1)}},
						},
					},
				},
			}

			rows := Rows(payload)
			So(rows, ShouldHaveLength, 2)
			So(rows[0][0], ShouldEqual, "id-1")
			So(rows[1][2], ShouldEqual, float64(1))
		})

		Convey("A malformed response yields no rows", func() {
			So(Rows(map[string]any{}), ShouldBeNil)
			So(Rows(map[string]any{"results": "nope"}), ShouldBeNil)
			So(Rows(map[string]any{"results": []any{map[string]any{}}}), ShouldBeNil)
		})
	})
}
