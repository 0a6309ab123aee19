package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()

	Convey("Given a Qdrant client", t, func() {
		Convey("An existing collection is left alone", func() {
			var creates int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPut {
					creates++
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			client := New(srv.URL, "memories-text")
			So(client.EnsureCollection(ctx, 1536), ShouldBeNil)
			So(creates, ShouldEqual, 0)
		})

		Convey("A missing collection is created with its content index", func() {
			var paths []string
			var createBody map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				paths = append(paths, r.URL.Path)
				if r.URL.Path == "/collections/memories-text" {
					json.NewDecoder(r.Body).Decode(&createBody)
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			client := New(srv.URL, "memories-text")
			So(client.EnsureCollection(ctx, 768), ShouldBeNil)
			So(paths, ShouldResemble, []string{
				"/collections/memories-text",
				"/collections/memories-text/index",
			})

			vectors := createBody["vectors"].(map[string]any)
			So(vectors["size"], ShouldEqual, float64(768))
			So(vectors["distance"], ShouldEqual, "Cosine")
		})
	})
}

func TestUpsertAndDelete(t *testing.T) {
	ctx := context.Background()

	Convey("Given a Qdrant client", t, func() {
		Convey("Upsert sends the points batch", func(c C) {
			var body map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.So(r.URL.Path, ShouldEqual, "/collections/mem/points")
				json.NewDecoder(r.Body).Decode(&body)
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			client := New(srv.URL, "mem")
			err := client.Upsert(ctx, []Point{{
				ID:      "id-1",
				Vector:  []float32{0.1, 0.2},
				Payload: map[string]any{"content": "hello"},
			}})
			So(err, ShouldBeNil)

			points := body["points"].([]any)
			So(points, ShouldHaveLength, 1)
			first := points[0].(map[string]any)
			So(first["id"], ShouldEqual, "id-1")
		})

		Convey("Delete posts the id to the delete endpoint", func(c C) {
			var body map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.So(r.URL.Path, ShouldEqual, "/collections/mem/points/delete")
				json.NewDecoder(r.Body).Decode(&body)
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			client := New(srv.URL, "mem")
			So(client.Delete(ctx, "id-1"), ShouldBeNil)
			So(body["points"], ShouldResemble, []any{"id-1"})
		})
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a Qdrant client", t, func() {
		Convey("Search builds filters and parses scored points", func(c C) {
			var body map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.So(r.URL.Path, ShouldEqual, "/collections/mem/points/search")
				json.NewDecoder(r.Body).Decode(&body)

				json.NewEncoder(w).Encode(map[string]any{
					"result": []map[string]any{
						{
							"id":      "hit-1",
							"score":   0.92,
							"payload": map[string]any{"content": "stored text"},
							"vector":  []float32{0.1},
						},
					},
				})
			}))
			defer srv.Close()

			client := New(srv.URL, "mem")
			hits, err := client.Search(ctx, SearchRequest{
				Vector:         []float32{0.1, 0.2},
				Limit:          5,
				Must:           []Condition{{Key: "agent_id", Value: "agent-1"}},
				Keyword:        "stored",
				ScoreThreshold: 0.5,
			})
			So(err, ShouldBeNil)
			So(hits, ShouldHaveLength, 1)
			So(hits[0].ID, ShouldEqual, "hit-1")
			So(hits[0].Score, ShouldAlmostEqual, 0.92, 1e-9)
			So(hits[0].Payload["content"], ShouldEqual, "stored text")

			filter := body["filter"].(map[string]any)
			must := filter["must"].([]any)
			So(must, ShouldHaveLength, 1)
			should := filter["should"].([]any)
			So(should, ShouldHaveLength, 1)
			So(body["score_threshold"], ShouldEqual, 0.5)
		})

		Convey("A server failure surfaces as an error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			}))
			defer srv.Close()

			client := New(srv.URL, "mem")
			_, err := client.Search(ctx, SearchRequest{Vector: []float32{0.1}, Limit: 1})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestHealth(t *testing.T) {
	ctx := context.Background()

	Convey("Given a Qdrant client", t, func() {
		Convey("Health passes on a live server", func(c C) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.So(r.URL.Path, ShouldEqual, "/collections")
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			So(New(srv.URL, "mem").Health(ctx), ShouldBeNil)
		})

		Convey("Health fails on an error status", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			So(New(srv.URL, "mem").Health(ctx), ShouldNotBeNil)
		})
	})
}
